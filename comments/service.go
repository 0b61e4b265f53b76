package comments

import (
	"context"
	"fmt"

	// `pgxpool` provides the shared connection pool.
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/snsapp/apperror"
)

// CommentService is the comments repository.
// Like the other repositories it checks one connection out per call and always releases it.
type CommentService struct {
	db *pgxpool.Pool
}

// NewCommentService creates a new CommentService.
func NewCommentService(db *pgxpool.Pool) *CommentService {
	return &CommentService{db: db}
}

// Create inserts a comment and returns its id.
// postID is not checked: a comment can be stored against a missing or deleted post.
func (s *CommentService) Create(ctx context.Context, userID, postID int64, content string) (int64, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	// A transaction keeps the insert invisible until Commit; on any early return the
	// deferred Rollback discards it.
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO comments (user_id, post_id, content) VALUES ($1, $2, $3) RETURNING id`,
		userID, postID, content,
	).Scan(&id)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to insert comment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperror.NewDatabaseError("failed to commit comment", err)
	}
	return id, nil
}

// GetByPostID returns the comments of a post, newest first.
func (s *CommentService) GetByPostID(ctx context.Context, postID int64) ([]Comment, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT id, user_id, post_id, content, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at DESC, id DESC`, postID)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("failed to list comments of post %d", postID), err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.PostID, &c.Content, &c.CreatedAt); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan comment", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to list comments", err)
	}
	return out, nil
}
