package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
)

const createPostsTables = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	external_id TEXT NOT NULL,
	type TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_owner_external ON posts(user_id, external_id, type);
CREATE TABLE IF NOT EXISTS post_tags (
	post_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	PRIMARY KEY(post_id, tag_id),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY(tag_id) REFERENCES tags(id)
);
CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTables); err != nil {
		return fmt.Errorf("create posts tables: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post, tagIDs []int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
INSERT INTO posts (user_id, external_id, type, created_at)
VALUES (?, ?, ?, ?)`,
		post.UserID,
		post.ExternalID,
		post.Type,
		createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}

	if err := insertPostTags(ctx, tx, id, tagIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit post create: %w", err)
	}
	post.ID = id
	post.CreatedAt = createdAt
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, external_id, type, created_at
FROM posts
WHERE id=?`,
		id,
	)
	return scanPost(row)
}

func (r *PostRepository) FindOwned(ctx context.Context, userID int64, externalID, postType string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, external_id, type, created_at
FROM posts
WHERE user_id=? AND external_id=? AND type=?`,
		userID,
		externalID,
		postType,
	)
	return scanPost(row)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, external_id, type, created_at
FROM posts
WHERE user_id=?
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
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id=? AND user_id=?`, postID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %d: %w", postID, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock post: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id=?`, postID); err != nil {
		return fmt.Errorf("delete post tags: %w", err)
	}
	if err := insertPostTags(ctx, tx, postID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tag replace: %w", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id=?`, id); err != nil {
		return fmt.Errorf("delete post tags: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("post delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit post delete: %w", err)
	}
	return nil
}

func insertPostTags(ctx context.Context, tx *sql.Tx, postID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO post_tags (post_id, tag_id)
VALUES (?, ?)`,
			postID,
			tagID,
		); err != nil {
			return fmt.Errorf("insert post tag: %w", mapError(err))
		}
	}
	return nil
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.ExternalID,
		&post.Type,
		&post.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}
