package comments

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/auth"
	"github.com/user/snsapp/background"
	"github.com/user/snsapp/render"
	"github.com/user/snsapp/session"
)

// Flash texts of the comment form.
const (
	MsgContentEmpty = "Comment content is empty"
	MsgCreated      = "Your comment has been posted"
)

// Store is the comment repository as the handlers see it.
type Store interface {
	Create(ctx context.Context, userID, postID int64, content string) (int64, error)
	GetByPostID(ctx context.Context, postID int64) ([]Comment, error)
}

// EventSink receives activity events.
type EventSink interface {
	Enqueue(e background.Event) bool
}

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	store  Store
	events EventSink
	render *render.Renderer
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(store Store, events EventSink, rd *render.Renderer) *CommentHandler {
	return &CommentHandler{store: store, events: events, render: rd}
}

// RegisterRoutes mounts the comment routes. router must already require a session.
func (h *CommentHandler) RegisterRoutes(router chi.Router) {
	router.Post("/posts/{id}/comments", h.HandleCreate())
}

// HandleCreate stores a comment and returns to the post page.
// The post is not looked up first, so a comment on a missing or deleted post is
// stored like any other.
func (h *CommentHandler) HandleCreate() http.HandlerFunc {
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
		if err := r.ParseForm(); err != nil {
			h.render.Error(w, r, apperror.NewBadRequestError("invalid form body", err))
			return
		}

		back := "/posts/" + strconv.FormatInt(postID, 10)
		s := session.FromContext(r.Context())

		content := strings.TrimSpace(r.PostForm.Get("content"))
		if content == "" {
			s.AddFlash(session.FlashError, MsgContentEmpty)
			h.render.Redirect(w, r, back)
			return
		}

		commentID, err := h.store.Create(r.Context(), userID, postID, content)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}
		h.events.Enqueue(background.CommentCreated(commentID, postID, userID))

		s.AddFlash(session.FlashSuccess, MsgCreated)
		h.render.Redirect(w, r, back)
	}
}
