package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/core/logger"
)

// Repository persists posts in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps the shared database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new post and returns its assigned id.
func (r *Repository) Create(ctx context.Context, p *Post) (int64, error) {
	const q = `
		INSERT INTO posts (title, content, media_kind, media_ref, buttons)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, p.Title, p.Content, p.MediaKind, p.MediaRef, p.Buttons).Scan(&id); err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	logger.SVCPosts.Debug("post created",
		slog.String("event", "post.create"),
		slog.Int64("post_id", id),
	)
	return id, nil
}

// Update overwrites a stored post. A missing id is a defined no-op.
func (r *Repository) Update(ctx context.Context, p *Post) error {
	const q = `
		UPDATE posts
		SET title = $2, content = $3, media_kind = $4, media_ref = $5, buttons = $6
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, p.ID, p.Title, p.Content, p.MediaKind, p.MediaRef, p.Buttons); err != nil {
		return fmt.Errorf("update post %d: %w", p.ID, err)
	}
	return nil
}

// Get returns the post by id or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := r.db.GetContext(ctx, &p, `SELECT * FROM posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &p, nil
}

// List returns all posts, newest first.
func (r *Repository) List(ctx context.Context) ([]Post, error) {
	var out []Post
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM posts ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

// Search returns posts whose title or content contains the query,
// case-insensitively, newest first. No match is an empty result.
func (r *Repository) Search(ctx context.Context, query string) ([]Post, error) {
	const q = `
		SELECT * FROM posts
		WHERE title ILIKE '%' || $1 || '%' OR content ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC`
	var out []Post
	if err := r.db.SelectContext(ctx, &out, q, query); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return out, nil
}

// Delete removes the post by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	logger.SVCPosts.Debug("post deleted",
		slog.String("event", "post.delete"),
		slog.Int64("post_id", id),
	)
	return nil
}
