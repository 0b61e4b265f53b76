// Package memstore holds users, posts and comments in process memory. It behaves like the
// Postgres repositories (unique emails, soft deletes, newest-first listings, no post
// check on comments) and backs the handler tests and `serve --memory`.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/comments"
	"github.com/user/snsapp/posts"
	"github.com/user/snsapp/users"
)

var errDuplicateEmail = errors.New(`duplicate key value violates unique constraint "users_email_key"`)

// Store groups the three in-memory repositories.
type Store struct {
	Users    *Users
	Posts    *Posts
	Comments *Comments
}

// New returns an empty Store whose repositories share clock.
// A nil clock means time.Now.
func New(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		Users:    &Users{now: clock, byID: map[int64]*users.User{}},
		Posts:    &Posts{now: clock, byID: map[int64]*posts.Post{}},
		Comments: &Comments{now: clock},
	}
}

// Users is the in-memory user repository.
type Users struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64
	byID   map[int64]*users.User
}

// Create stores a user. A taken email fails like the unique constraint does.
func (s *Users) Create(_ context.Context, name, email, hashedPassword string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return 0, apperror.NewDatabaseError("failed to create user", errDuplicateEmail)
		}
	}
	s.nextID++
	s.byID[s.nextID] = &users.User{
		ID:             s.nextID,
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      s.now(),
	}
	return s.nextID, nil
}

// FindByEmail returns a copy of the user with email.
func (s *Users) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

// GetNameByID returns the user's name, or "" for an unknown id.
func (s *Users) GetNameByID(_ context.Context, userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[userID]; ok {
		return u.Name, nil
	}
	return "", nil
}

// Count returns the number of stored users.
func (s *Users) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Posts is the in-memory post repository.
type Posts struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64
	byID   map[int64]*posts.Post
}

// GetAll returns the live posts, newest first.
func (s *Posts) GetAll(_ context.Context) ([]posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []posts.Post
	for _, p := range s.byID {
		if !p.Deleted() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

// Create stores a post and returns its id.
func (s *Posts) Create(_ context.Context, userID int64, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.byID[s.nextID] = &posts.Post{
		ID:        s.nextID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now(),
	}
	return s.nextID, nil
}

// Delete stamps DeletedAt. Unknown or already deleted posts are left alone.
func (s *Posts) Delete(_ context.Context, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byID[postID]; ok && !p.Deleted() {
		at := s.now()
		p.DeletedAt = &at
	}
	return nil
}

// FindByID returns a copy of a live post.
func (s *Posts) FindByID(_ context.Context, postID int64) (*posts.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[postID]
	if !ok || p.Deleted() {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("post %d not found", postID), nil)
	}
	cp := *p
	return &cp, nil
}

// Raw returns a post even when it is soft-deleted. It exists for inspection in tests.
func (s *Posts) Raw(postID int64) (posts.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[postID]
	if !ok {
		return posts.Post{}, false
	}
	return *p, true
}

// Comments is the in-memory comment repository.
type Comments struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64
	rows   []comments.Comment
}

// Create stores a comment without looking at postID.
func (s *Comments) Create(_ context.Context, userID, postID int64, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows = append(s.rows, comments.Comment{
		ID:        s.nextID,
		UserID:    userID,
		PostID:    postID,
		Content:   content,
		CreatedAt: s.now(),
	})
	return s.nextID, nil
}

// GetByPostID returns the comments of postID, newest first.
func (s *Comments) GetByPostID(_ context.Context, postID int64) ([]comments.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []comments.Comment
	for _, c := range s.rows {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

// newer orders by creation time descending, then by id descending.
func newer(at1 time.Time, id1 int64, at2 time.Time, id2 int64) bool {
	if !at1.Equal(at2) {
		return at1.After(at2)
	}
	return id1 > id2
}
