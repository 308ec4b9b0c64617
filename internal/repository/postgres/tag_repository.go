package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
)

const createTagsTable = `
CREATE TABLE IF NOT EXISTS tags (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);
`

type TagRepository struct {
	pool *pgxpool.Pool
}

func NewTagRepository(pool *pgxpool.Pool) repository.TagRepository {
	return &TagRepository{pool: pool}
}

func (r *TagRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTagsTable); err != nil {
		return fmt.Errorf("create tags table: %w", err)
	}
	return nil
}

func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) (int64, error) {
	tag.CreatedAt = time.Now().UTC()
	if err := r.pool.QueryRow(ctx, `
INSERT INTO tags (name, created_at)
VALUES ($1, $2)
RETURNING id`, tag.Name, tag.CreatedAt).Scan(&tag.ID); err != nil {
		return 0, fmt.Errorf("insert tag %q: %w", tag.Name, mapError(err))
	}
	return tag.ID, nil
}

func (r *TagRepository) GetByNames(ctx context.Context, names []string) ([]domain.Tag, error) {
	if len(names) == 0 {
		return []domain.Tag{}, nil
	}
	return r.queryTags(ctx, `
SELECT id, name, created_at
FROM tags
WHERE name = ANY($1)
ORDER BY id ASC`, names)
}

func (r *TagRepository) ListByPost(ctx context.Context, postID int64) ([]domain.Tag, error) {
	return r.queryTags(ctx, `
SELECT t.id, t.name, t.created_at
FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
WHERE pt.post_id = $1
ORDER BY t.name ASC`, postID)
}

func (r *TagRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Tag, error) {
	return r.queryTags(ctx, `
SELECT DISTINCT t.id, t.name, t.created_at
FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
JOIN posts p ON p.id = pt.post_id
WHERE p.user_id = $1
ORDER BY t.name ASC`, userID)
}

func (r *TagRepository) queryTags(ctx context.Context, query string, args ...any) ([]domain.Tag, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
