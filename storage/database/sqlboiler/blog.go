package boiledrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/blog"
	"github.com/trezcool/jukwaa/storage/database/sqlboiler/models"
)

type blogRepository struct {
	db core.DB
}

var _ blog.Repository = (*blogRepository)(nil) // interface compliance check

func NewBlogRepository(db core.DB) blog.Repository {
	return &blogRepository{db: db}
}

func unboilPost(p models.Post) blog.Post {
	return blog.Post{
		ID:        p.ID,
		AuthorID:  p.AuthorID.String,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (repo *blogRepository) QueryPosts(ctx context.Context) ([]blog.Post, error) {
	var rows []models.Post
	err := models.NewQuery(
		qm.Select("*"),
		qm.From(models.TableNames.Post),
		qm.OrderBy("created_at DESC, id DESC"),
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting posts")
	}
	posts := make([]blog.Post, 0, len(rows))
	for _, p := range rows {
		posts = append(posts, unboilPost(p))
	}
	return posts, nil
}

func (repo *blogRepository) GetPost(ctx context.Context, id string) (blog.Post, error) {
	if !validID(id) {
		return blog.Post{}, blog.ErrNotFound
	}
	var p models.Post
	err := models.NewQuery(qm.Select("*"), qm.From(models.TableNames.Post), qm.Where("id = ?", id)).Bind(ctx, repo.db, &p)
	if err != nil {
		return blog.Post{}, trapNoRowsErr(err, blog.ErrNotFound, "selecting post")
	}
	return unboilPost(p), nil
}

func (repo *blogRepository) CreatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	err := models.Insert(ctx, repo.db, models.TableNames.Post,
		[]string{"id", "author_id", "title", "content", "created_at", "updated_at"},
		post.ID, nullID(post.AuthorID), post.Title, post.Content, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return blog.Post{}, errors.Wrap(err, "inserting post")
	}
	return post, nil
}

func (repo *blogRepository) UpdatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	if !validID(post.ID) {
		return blog.Post{}, blog.ErrNotFound
	}
	n, err := models.Update(ctx, repo.db, models.TableNames.Post, post.ID,
		[]string{"title", "content", "updated_at"}, post.Title, post.Content, post.UpdatedAt.UTC())
	if err != nil {
		return blog.Post{}, errors.Wrap(err, "updating post")
	}
	if n == 0 {
		return blog.Post{}, blog.ErrNotFound
	}
	return repo.GetPost(ctx, post.ID)
}

func (repo *blogRepository) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return blog.ErrNotFound
	}
	found, err := deleteByID(ctx, repo.db, models.TableNames.Post, id)
	if err != nil {
		return err
	}
	if !found {
		return blog.ErrNotFound
	}
	return nil
}
