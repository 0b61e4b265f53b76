// Package server assembles the HTTP handler: middleware stack, session loading and the
// route table.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/auth"
	"github.com/user/snsapp/background"
	"github.com/user/snsapp/comments"
	"github.com/user/snsapp/posts"
	"github.com/user/snsapp/render"
	"github.com/user/snsapp/session"
)

// UserStore is everything the handlers need from the user repository.
type UserStore interface {
	auth.UserStore
	posts.NameLookup
}

// EventSink receives activity events from the mutating handlers.
type EventSink interface {
	Enqueue(e background.Event) bool
}

// Options carries the dependencies of NewRouter.
type Options struct {
	Sessions *session.Manager
	Renderer *render.Renderer
	Users    UserStore
	Posts    posts.Store
	Comments comments.Store
	Events   EventSink
	// AllowedOrigins are the extra origins allowed to call the app cross-origin.
	// Empty means same-origin only.
	AllowedOrigins []string
}

// NewRouter builds the application router.
func NewRouter(opts Options) (http.Handler, error) {
	rd := opts.Renderer

	authHandlers := auth.NewHandlers(auth.NewAuthService(opts.Users), rd)
	postHandlers := posts.NewHandlers(opts.Posts, opts.Comments, opts.Users, opts.Events, rd)
	commentHandlers := comments.NewCommentHandler(opts.Comments, opts.Events, rd)

	crossOrigin := http.NewCrossOriginProtection()
	for _, origin := range opts.AllowedOrigins {
		if err := crossOrigin.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid allowed origin %q: %w", origin, err)
		}
	}
	crossOrigin.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rd.Error(w, r, apperror.NewBadRequestError("cross-origin request rejected", nil))
	}))

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(rd.Recoverer)
	r.Use(rd.Timeout(60 * time.Second))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(crossOrigin.Handler)
	r.Use(opts.Sessions.Middleware)

	r.NotFound(rd.NotFound())
	r.MethodNotAllowed(rd.NotFound())

	r.Get("/", authHandlers.HandleIndex())

	r.Group(func(r chi.Router) {
		r.Use(auth.RedirectIfLoggedIn)
		r.Get("/signup", authHandlers.HandleSignupPage())
		r.Get("/login", authHandlers.HandleLoginPage())
	})
	r.Post("/signup", authHandlers.HandleSignup())
	r.Post("/login", authHandlers.HandleLogin())
	r.Get("/logout", authHandlers.HandleLogout())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		postHandlers.RegisterRoutes(r)
		commentHandlers.RegisterRoutes(r)
	})

	return r, nil
}
