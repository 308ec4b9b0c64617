package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
)

const createPostsTables = `
CREATE TABLE IF NOT EXISTS posts (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	external_id TEXT NOT NULL,
	type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, external_id, type)
);
CREATE TABLE IF NOT EXISTS post_tags (
	post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	tag_id BIGINT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (post_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);
`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) repository.PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createPostsTables); err != nil {
		return fmt.Errorf("create posts tables: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post, tagIDs []int64) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	createdAt := time.Now().UTC()
	var id int64
	if err := tx.QueryRow(ctx, `
INSERT INTO posts (user_id, external_id, type, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id`,
		post.UserID,
		post.ExternalID,
		post.Type,
		createdAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert post: %w", mapError(err))
	}

	if err := insertPostTags(ctx, tx, id, tagIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit post create: %w", err)
	}
	post.ID = id
	post.CreatedAt = createdAt
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, external_id, type, created_at
FROM posts
WHERE id = $1`, id)
	return scanPost(row)
}

func (r *PostRepository) FindOwned(ctx context.Context, userID int64, externalID, postType string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, external_id, type, created_at
FROM posts
WHERE user_id = $1 AND external_id = $2 AND type = $3`,
		userID, externalID, postType)
	return scanPost(row)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, external_id, type, created_at
FROM posts
WHERE user_id = $1
ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *PostRepository) ReplaceTags(ctx context.Context, postID, userID int64, tagIDs []int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM posts WHERE id = $1 AND user_id = $2 FOR UPDATE`, postID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("post %d: %w", postID, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock post: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("delete post tags: %w", err)
	}
	if err := insertPostTags(ctx, tx, postID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tag replace: %w", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func insertPostTags(ctx context.Context, tx pgx.Tx, postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, tagID := range tagIDs {
		batch.Queue(`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)`, postID, tagID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert post tags: %w", mapError(err))
	}
	return nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.ExternalID,
		&post.Type,
		&post.CreatedAt,
	); err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}
