package auth

import (
	"context"

	"github.com/user/snsapp/session"
)

// UserIDFromContext returns the logged-in user id stored by the session middleware.
// The second result is false for anonymous requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	s := session.FromContext(ctx)
	if !s.LoggedIn() {
		return 0, false
	}
	return s.UserID, true
}
