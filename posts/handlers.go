package posts

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/auth"
	"github.com/user/snsapp/background"
	"github.com/user/snsapp/comments"
	"github.com/user/snsapp/render"
	"github.com/user/snsapp/session"
)

// Flash texts of the post flows.
const (
	MsgContentEmpty = "Post content is empty"
	MsgCreated      = "Your post has been published"
	MsgNotOwner     = "You cannot delete this post"
	MsgDeleted      = "The post has been deleted"
)

// Store is the post repository as the handlers see it.
type Store interface {
	GetAll(ctx context.Context) ([]Post, error)
	Create(ctx context.Context, userID int64, content string) (int64, error)
	Delete(ctx context.Context, postID int64) error
	// FindByID returns a NotFoundError for absent and soft-deleted posts.
	FindByID(ctx context.Context, postID int64) (*Post, error)
}

// CommentLister loads the comments shown on the detail page.
type CommentLister interface {
	GetByPostID(ctx context.Context, postID int64) ([]comments.Comment, error)
}

// NameLookup resolves author names. An unknown user yields "".
type NameLookup interface {
	GetNameByID(ctx context.Context, userID int64) (string, error)
}

// EventSink receives activity events.
type EventSink interface {
	Enqueue(e background.Event) bool
}

// Handlers serves the post pages and forms.
type Handlers struct {
	posts    Store
	comments CommentLister
	names    NameLookup
	events   EventSink
	render   *render.Renderer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(posts Store, comments CommentLister, names NameLookup, events EventSink, rd *render.Renderer) *Handlers {
	return &Handlers{posts: posts, comments: comments, names: names, events: events, render: rd}
}

// RegisterRoutes mounts the post routes. router must already require a session.
func (h *Handlers) RegisterRoutes(router chi.Router) {
	router.Get("/posts", h.HandleList())
	router.Post("/posts", h.HandleCreate())
	router.Get("/posts/{id}", h.HandleDetail())
	router.Post("/posts/{id}/delete", h.HandleDelete())
}

// HandleList renders every live post, newest first.
func (h *Handlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.posts.GetAll(r.Context())
		if err != nil {
			h.render.Error(w, r, err)
			return
		}

		views := make([]PostView, 0, len(list))
		for _, p := range list {
			name, err := h.names.GetNameByID(r.Context(), p.UserID)
			if err != nil {
				h.render.Error(w, r, err)
				return
			}
			views = append(views, PostView{Post: p, AuthorName: name})
		}

		h.render.HTML(w, r, http.StatusOK, render.PagePosts, views)
	}
}

// HandleDetail renders one post with its comments.
func (h *Handlers) HandleDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := render.IDParam(r)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}

		ctx := r.Context()
		post, err := h.posts.FindByID(ctx, postID)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}
		author, err := h.names.GetNameByID(ctx, post.UserID)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}

		list, err := h.comments.GetByPostID(ctx, postID)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}
		views := make([]comments.CommentView, 0, len(list))
		for _, c := range list {
			name, err := h.names.GetNameByID(ctx, c.UserID)
			if err != nil {
				h.render.Error(w, r, err)
				return
			}
			views = append(views, comments.CommentView{Comment: c, AuthorName: name})
		}

		h.render.HTML(w, r, http.StatusOK, render.PagePostDetail, DetailView{
			Post:     PostView{Post: *post, AuthorName: author},
			Comments: views,
		})
	}
}

// HandleCreate publishes a post for the logged-in user.
func (h *Handlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			h.render.Redirect(w, r, "/login")
			return
		}
		if err := r.ParseForm(); err != nil {
			h.render.Error(w, r, apperror.NewBadRequestError("invalid form body", err))
			return
		}

		s := session.FromContext(r.Context())
		content := strings.TrimSpace(r.PostForm.Get("content"))
		if content == "" {
			s.AddFlash(session.FlashError, MsgContentEmpty)
			h.render.Redirect(w, r, "/posts")
			return
		}

		postID, err := h.posts.Create(r.Context(), userID, content)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}
		h.events.Enqueue(background.PostCreated(postID, userID))

		s.AddFlash(session.FlashSuccess, MsgCreated)
		h.render.Redirect(w, r, "/posts")
	}
}

// HandleDelete soft-deletes a post. Only its owner may do so; anyone else gets a flash
// and the post stays as it is.
func (h *Handlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := render.IDParam(r)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			h.render.Redirect(w, r, "/login")
			return
		}

		post, err := h.posts.FindByID(r.Context(), postID)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}

		s := session.FromContext(r.Context())
		if post.UserID != userID {
			s.AddFlash(session.FlashError, MsgNotOwner)
			h.render.Redirect(w, r, "/posts")
			return
		}

		if err := h.posts.Delete(r.Context(), postID); err != nil {
			h.render.Error(w, r, err)
			return
		}
		h.events.Enqueue(background.PostDeleted(postID, userID))

		s.AddFlash(session.FlashSuccess, MsgDeleted)
		h.render.Redirect(w, r, "/posts")
	}
}
