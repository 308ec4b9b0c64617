package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
)

const createTagsTable = `
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL
);
`

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) repository.TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTagsTable); err != nil {
		return fmt.Errorf("create tags table: %w", err)
	}
	return nil
}

func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) (int64, error) {
	tag.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
INSERT INTO tags (name, created_at)
VALUES (?, ?)`,
		tag.Name,
		tag.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert tag %q: %w", tag.Name, mapError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("tag last insert id: %w", err)
	}
	tag.ID = id
	return id, nil
}

func (r *TagRepository) GetByNames(ctx context.Context, names []string) ([]domain.Tag, error) {
	if len(names) == 0 {
		return []domain.Tag{}, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args[i] = name
	}

	query := fmt.Sprintf(`
SELECT id, name, created_at
FROM tags
WHERE name IN (%s)
ORDER BY id ASC`, strings.Join(placeholders, ","))

	return r.queryTags(ctx, query, args...)
}

func (r *TagRepository) ListByPost(ctx context.Context, postID int64) ([]domain.Tag, error) {
	return r.queryTags(ctx, `
SELECT t.id, t.name, t.created_at
FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
WHERE pt.post_id=?
ORDER BY t.name ASC`, postID)
}

func (r *TagRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Tag, error) {
	return r.queryTags(ctx, `
SELECT DISTINCT t.id, t.name, t.created_at
FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
JOIN posts p ON p.id = pt.post_id
WHERE p.user_id=?
ORDER BY t.name ASC`, userID)
}

func (r *TagRepository) queryTags(ctx context.Context, query string, args ...any) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
