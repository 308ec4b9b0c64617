package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tagmark/internal/domain"
)

// ErrSnapshotNotFound is returned when no snapshot was archived for a post.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Archive keeps the last fetched tweet of each post in object storage so a post
// can still be shown while the live API is unavailable.
type Archive interface {
	SaveSnapshot(ctx context.Context, post domain.Post, tweet domain.Tweet) error
	LoadSnapshot(ctx context.Context, post domain.Post) (*domain.Tweet, error)
	DeleteSnapshots(ctx context.Context, post domain.Post) error
}

// postPrefix is the key prefix holding every object of a post.
func postPrefix(keyPrefix string, post domain.Post) string {
	prefix := fmt.Sprintf("users/%d/posts/%d/", post.UserID, post.ID)
	keyPrefix = strings.Trim(keyPrefix, "/")
	if keyPrefix == "" {
		return prefix
	}
	return keyPrefix + "/" + prefix
}

func snapshotKey(keyPrefix string, post domain.Post) string {
	return postPrefix(keyPrefix, post) + post.Type + ".json"
}
