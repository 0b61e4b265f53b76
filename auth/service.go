// Package auth handles signup, login and logout, and gates the routes that need a
// logged-in user.
package auth

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/users"
)

// UserStore is the part of the user repository the auth flows need.
type UserStore interface {
	Create(ctx context.Context, name, email, hashedPassword string) (int64, error)
	// FindByEmail returns a NotFoundError for an unknown email.
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// AuthService holds the signup and login rules.
// Rejected input comes back as a ValidationError whose message is the flash to show.
type AuthService struct {
	users    UserStore
	validate *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(store UserStore) *AuthService {
	return &AuthService{users: store, validate: newValidator()}
}

// Register validates form, creates the account and returns the new user id.
func (s *AuthService) Register(ctx context.Context, form SignupForm) (int64, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)

	if msg := signupMessage(s.validate, form); msg != "" {
		return 0, apperror.NewValidationError(msg, nil)
	}

	_, err := s.users.FindByEmail(ctx, form.Email)
	switch {
	case err == nil:
		return 0, apperror.NewValidationError(MsgEmailRegistered, nil)
	case !apperror.IsNotFound(err):
		return 0, err
	}

	hashed, err := HashPassword(form.Password)
	if err != nil {
		return 0, apperror.NewInternalError("failed to hash password", err)
	}

	// Two signups racing on one email both get here; the loser fails on the unique
	// constraint and surfaces as a storage error.
	return s.users.Create(ctx, form.Name, form.Email, hashed)
}

// Login checks the credentials and returns the user id.
// Unknown emails and wrong passwords produce the same message.
func (s *AuthService) Login(ctx context.Context, form LoginForm) (int64, error) {
	if msg := loginMessage(s.validate, form); msg != "" {
		return 0, apperror.NewValidationError(msg, nil)
	}

	user, err := s.users.FindByEmail(ctx, form.Email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return 0, apperror.NewValidationError(MsgLoginIncorrect, nil)
		}
		return 0, err
	}

	if !CheckPassword(user.HashedPassword, form.Password) {
		return 0, apperror.NewValidationError(MsgLoginIncorrect, nil)
	}
	return user.ID, nil
}
