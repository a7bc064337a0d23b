package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/jukwaa/core/blog"
)

type blogRepository struct {
	db *DB
}

var _ blog.Repository = (*blogRepository)(nil)

func NewBlogRepository(db *DB) blog.Repository {
	return &blogRepository{db: db}
}

func (repo *blogRepository) QueryPosts(_ context.Context) ([]blog.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	posts := make([]blog.Post, 0, len(repo.db.posts))
	for _, p := range repo.db.posts {
		posts = append(posts, *p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (repo *blogRepository) GetPost(_ context.Context, id string) (blog.Post, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.posts[id]; ok {
		return *p, nil
	}
	return blog.Post{}, blog.ErrNotFound
}

func (repo *blogRepository) CreatePost(_ context.Context, post blog.Post) (blog.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	stored := post
	repo.db.posts[post.ID] = &stored
	return post, nil
}

func (repo *blogRepository) UpdatePost(_ context.Context, post blog.Post) (blog.Post, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.posts[post.ID]
	if !ok {
		return blog.Post{}, blog.ErrNotFound
	}
	orig.Title = post.Title
	orig.Content = post.Content
	orig.UpdatedAt = post.UpdatedAt
	return *orig, nil
}

func (repo *blogRepository) DeletePost(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.posts[id]; !ok {
		return blog.ErrNotFound
	}
	delete(repo.db.posts, id)
	return nil
}
