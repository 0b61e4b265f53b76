package users

import (
	"context"
	"errors"
	"fmt"

	// `pgx` specific imports for PostgreSQL interaction.
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/snsapp/apperror"
)

// UserService runs the user queries against the connection pool.
// Every method checks a connection out of the pool and releases it on every return path.
type UserService struct {
	// `db` is the shared pool, injected at startup.
	db *pgxpool.Pool
}

// NewUserService creates a new UserService.
func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// Create inserts a user and returns its id.
// A concurrent signup with the same email fails here on the unique constraint and is
// reported as a DatabaseError like any other storage failure.
func (s *UserService) Create(ctx context.Context, name, email, hashedPassword string) (int64, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	// Rollback after a successful Commit is a no-op, so this only undoes failed attempts.
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id`,
		name, email, hashedPassword,
	).Scan(&id)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to create user", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperror.NewDatabaseError("failed to commit user", err)
	}
	return id, nil
}

// FindByEmail looks a user up by exact email. An unknown email is a NotFoundError.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*User, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	var user User
	err = conn.QueryRow(ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by email", err)
	}
	return &user, nil
}

// GetNameByID returns the display name of a user, or "" when no such user exists.
func (s *UserService) GetNameByID(ctx context.Context, userID int64) (string, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return "", apperror.NewDatabaseError("failed to acquire connection", err)
	}
	defer conn.Release()

	var name string
	err = conn.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperror.NewDatabaseError(fmt.Sprintf("failed to get name of user %d", userID), err)
	}
	return name, nil
}
