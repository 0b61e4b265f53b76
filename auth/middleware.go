package auth

import (
	"net/http"

	"github.com/user/snsapp/session"
)

// RequireSession sends anonymous requests to the login page. The user id in the session
// is trusted as is; nothing is looked up per request.
// Pages behind it are marked no-store so they do not linger in shared caches after logout.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).LoggedIn() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// RedirectIfLoggedIn sends logged-in users away from the signup and login pages.
func RedirectIfLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).LoggedIn() {
			http.Redirect(w, r, "/posts", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
