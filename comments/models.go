// Package comments covers creating comments on posts and listing a post's comments.
package comments

import "time"

// Comment is a reply to a post. Comments have no update or delete path.
type Comment struct {
	ID        int64
	UserID    int64
	PostID    int64 // Not checked against posts when the comment is created
	Content   string
	CreatedAt time.Time
}

// CommentView is a comment together with its author's name.
type CommentView struct {
	Comment
	AuthorName string
}
