package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/snsapp/apperror"
)

// PostService is the posts repository. Each method runs exactly one SQL statement on a
// connection acquired from the pool and released before the method returns.
type PostService struct {
	db *pgxpool.Pool
}

// NewPostService creates a new PostService.
func NewPostService(db *pgxpool.Pool) *PostService {
	return &PostService{db: db}
}

// GetAll returns every non-deleted post, newest first.
func (s *PostService) GetAll(ctx context.Context) ([]Post, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT id, user_id, content, created_at, deleted_at
		FROM posts
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list posts", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt, &p.DeletedAt); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan post", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list posts", err)
	}
	return out, nil
}

// Create inserts a post owned by userID and returns its id.
func (s *PostService) Create(ctx context.Context, userID int64, content string) (int64, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO posts (user_id, content) VALUES ($1, $2) RETURNING id`,
		userID, content,
	).Scan(&id)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to create post", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperror.NewDatabaseError("failed to commit post", err)
	}
	return id, nil
}

// Delete soft-deletes a post by stamping deleted_at.
// Already deleted posts are left untouched; callers check existence with FindByID first.
func (s *PostService) Delete(ctx context.Context, postID int64) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE posts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		postID,
	); err != nil {
		return apperror.NewDatabaseError(fmt.Sprintf("failed to delete post %d", postID), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit post deletion", err)
	}
	return nil
}

// FindByID returns a non-deleted post. Absent and soft-deleted posts are both NotFoundError.
func (s *PostService) FindByID(ctx context.Context, postID int64) (*Post, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	var p Post
	err = conn.QueryRow(ctx, `
		SELECT id, user_id, content, created_at, deleted_at
		FROM posts
		WHERE id = $1 AND deleted_at IS NULL`, postID,
	).Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", postID), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get post", err)
	}
	return &p, nil
}
