// Package background publishes activity events off the request path.
// Handlers hand an Event to the Dispatcher and return immediately; a small pool of
// worker goroutines delivers it to the configured Publisher.
package background

import (
	"context"
	"log"
	"time"
)

// Event subjects.
const (
	SubjectPostCreated    = "posts.created"
	SubjectPostDeleted    = "posts.deleted"
	SubjectCommentCreated = "comments.created"
)

// Event describes one successful mutation.
type Event struct {
	Subject    string    `json:"-"`
	PostID     int64     `json:"post_id"`
	CommentID  int64     `json:"comment_id,omitempty"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PostCreated builds the event for a new post.
func PostCreated(postID, userID int64) Event {
	return Event{Subject: SubjectPostCreated, PostID: postID, UserID: userID, OccurredAt: time.Now().UTC()}
}

// PostDeleted builds the event for a soft-deleted post. userID is the user who deleted it.
func PostDeleted(postID, userID int64) Event {
	return Event{Subject: SubjectPostDeleted, PostID: postID, UserID: userID, OccurredAt: time.Now().UTC()}
}

// CommentCreated builds the event for a new comment.
func CommentCreated(commentID, postID, userID int64) Event {
	return Event{Subject: SubjectCommentCreated, PostID: postID, CommentID: commentID, UserID: userID, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct{}

// Publish logs e.
func (LogPublisher) Publish(_ context.Context, e Event) error {
	log.Printf("event %s: post=%d comment=%d user=%d", e.Subject, e.PostID, e.CommentID, e.UserID)
	return nil
}

// Close does nothing.
func (LogPublisher) Close() error { return nil }
