package repository

import (
	"context"

	"tagmark/internal/domain"
)

// PostRepository persists posts and their tag associations.
// Create and ReplaceTags write the post row and its join rows in one transaction.
// ReplaceTags returns ErrNotFound when the post is gone or not owned by userID.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post, tagIDs []int64) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	FindOwned(ctx context.Context, userID int64, externalID, postType string) (*domain.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Post, error)
	ReplaceTags(ctx context.Context, postID, userID int64, tagIDs []int64) error
	Delete(ctx context.Context, id int64) error
}

// TagRepository manages the global tag namespace.
type TagRepository interface {
	Init(ctx context.Context) error
	// Create returns ErrConflict when a tag with the same name already exists.
	Create(ctx context.Context, tag *domain.Tag) (int64, error)
	GetByNames(ctx context.Context, names []string) ([]domain.Tag, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Tag, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Tag, error)
}
