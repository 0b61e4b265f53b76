package auth

import (
	"net/http"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/render"
	"github.com/user/snsapp/session"
)

// Handlers wraps the AuthService to provide HTTP handlers.
type Handlers struct {
	service *AuthService
	render  *render.Renderer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *AuthService, rd *render.Renderer) *Handlers {
	return &Handlers{service: service, render: rd}
}

// HandleIndex sends the visitor to the posts or the login page.
func (h *Handlers) HandleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); ok {
			http.Redirect(w, r, "/posts", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}
}

// HandleSignupPage renders the signup form.
func (h *Handlers) HandleSignupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render.HTML(w, r, http.StatusOK, render.PageSignup, nil)
	}
}

// HandleSignup creates an account and logs it in.
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.render.Error(w, r, apperror.NewBadRequestError("invalid form body", err))
			return
		}
		form := SignupForm{
			Name:                 r.PostForm.Get("name"),
			Email:                r.PostForm.Get("email"),
			Password:             r.PostForm.Get("password"),
			PasswordConfirmation: r.PostForm.Get("password_confirmation"),
		}

		userID, err := h.service.Register(r.Context(), form)
		if h.rejected(w, r, err, "/signup") {
			return
		}

		session.FromContext(r.Context()).Login(userID)
		h.render.Redirect(w, r, "/posts")
	}
}

// HandleLoginPage renders the login form.
func (h *Handlers) HandleLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render.HTML(w, r, http.StatusOK, render.PageLogin, nil)
	}
}

// HandleLogin checks the credentials and logs the user in.
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.render.Error(w, r, apperror.NewBadRequestError("invalid form body", err))
			return
		}
		form := LoginForm{
			Email:    r.PostForm.Get("email"),
			Password: r.PostForm.Get("password"),
		}

		userID, err := h.service.Login(r.Context(), form)
		if h.rejected(w, r, err, "/login") {
			return
		}

		session.FromContext(r.Context()).Login(userID)
		h.render.Redirect(w, r, "/posts")
	}
}

// HandleLogout forgets the whole session, flashes included.
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.FromContext(r.Context()).Clear()
		h.render.Redirect(w, r, "/login")
	}
}

// rejected writes the response for a failed Register or Login and reports whether it did.
// Validation failures become an error flash and a redirect back to the form.
func (h *Handlers) rejected(w http.ResponseWriter, r *http.Request, err error, back string) bool {
	if err == nil {
		return false
	}
	if apperror.IsValidationError(err) {
		session.FromContext(r.Context()).AddFlash(session.FlashError, apperror.FromError(err).Message)
		h.render.Redirect(w, r, back)
		return true
	}
	h.render.Error(w, r, err)
	return true
}
