package blog

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
)

// ErrNotFound is returned when a Post does not exist.
var ErrNotFound = errors.New("post not found")

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"` // empty once the author is deleted
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostPayload struct {
	Title   string `json:"title" validate:"required,max=200,notblank"`
	Content string `json:"content" validate:"required,notblank"`
}

func (p *PostPayload) Validate(validate *validator.Validate) error {
	p.Title = core.CleanString(p.Title)
	return validate.Struct(p)
}

type Repository interface {
	// QueryPosts returns all posts, newest first.
	QueryPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	CreatePost(ctx context.Context, post Post) (Post, error)
	UpdatePost(ctx context.Context, post Post) (Post, error)
	DeletePost(ctx context.Context, id string) error
}

type Service struct {
	repo           Repository
	validate       *validator.Validate
	moderatorGroup string
}

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	svc := &Service{repo: repo, validate: validate}
	if conf != nil {
		svc.moderatorGroup = conf.Forum.ModeratorGroup
	}
	if svc.validate == nil {
		svc.validate = core.NewValidator(core.NewTranslator())
	}
	return svc
}

func (svc *Service) List(ctx context.Context) ([]Post, error) {
	posts, err := svc.repo.QueryPosts(ctx)
	return posts, errors.Wrap(err, "querying posts")
}

func (svc *Service) Get(ctx context.Context, id string) (Post, error) {
	return svc.repo.GetPost(ctx, id)
}

func (svc *Service) Create(ctx context.Context, identity core.Identity, p PostPayload) (Post, error) {
	if !forum.IsAdministrator(identity, svc.moderatorGroup) {
		return Post{}, forum.ErrUnauthorized
	}
	if err := p.Validate(svc.validate); err != nil {
		return Post{}, err
	}

	now := core.NowFunc()
	post, err := svc.repo.CreatePost(ctx, Post{
		ID:        uuid.New().String(),
		AuthorID:  identity.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return post, errors.Wrap(err, "creating post")
}

func (svc *Service) Update(ctx context.Context, identity core.Identity, id string, p PostPayload) (Post, error) {
	post, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if !forum.IsAdministrator(identity, svc.moderatorGroup) {
		return Post{}, forum.ErrUnauthorized
	}
	if err = p.Validate(svc.validate); err != nil {
		return Post{}, err
	}

	post.Title = p.Title
	post.Content = p.Content
	post.UpdatedAt = core.NowFunc()
	post, err = svc.repo.UpdatePost(ctx, post)
	return post, errors.Wrap(err, "updating post")
}

func (svc *Service) Delete(ctx context.Context, identity core.Identity, id string) error {
	if _, err := svc.repo.GetPost(ctx, id); err != nil {
		return err
	}
	if !forum.IsAdministrator(identity, svc.moderatorGroup) {
		return forum.ErrUnauthorized
	}
	return errors.Wrap(svc.repo.DeletePost(ctx, id), "deleting post")
}
