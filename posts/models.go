// Package posts covers the post list, detail, create and delete flows: the repository
// over the connection pool and the HTTP handlers in front of it.
package posts

import (
	"time"

	"github.com/user/snsapp/comments"
)

// Post is a short text message owned by a user.
// Posts are never physically removed: DeletedAt marks them as gone and every read path
// filters on it.
type Post struct {
	ID        int64
	UserID    int64 // Owner; never changes after creation
	Content   string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the post has been soft-deleted.
func (p *Post) Deleted() bool {
	return p.DeletedAt != nil
}

// PostView is a post together with its author's name, as the templates need it.
type PostView struct {
	Post
	AuthorName string
}

// DetailView is everything the post detail page shows.
type DetailView struct {
	Post     PostView
	Comments []comments.CommentView
}
