// Package session keeps per-browser state in a signed cookie.
// The cookie value is an HS256 JWT whose claims carry the logged-in user id and any
// pending flash messages; nothing is stored server-side. A token that is missing,
// expired, or fails signature verification simply yields an empty session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/snsapp/config"
)

// Flash categories used by the templates to pick a style.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Flash is a one-time notice shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the decoded content of the session cookie.
type Session struct {
	ID      string
	UserID  int64
	Flashes []Flash
}

// LoggedIn reports whether a user id is bound to the session.
func (s *Session) LoggedIn() bool {
	return s.UserID != 0
}

// Login binds userID to the session. The session id is dropped so the next Encode
// issues a fresh one.
func (s *Session) Login(userID int64) {
	s.ID = ""
	s.UserID = userID
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns the queued messages and forgets them.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

// Clear drops everything, including the session id.
func (s *Session) Clear() {
	*s = Session{}
}

func (s *Session) empty() bool {
	return s.UserID == 0 && len(s.Flashes) == 0
}

// claims is the JWT payload of the session cookie.
type claims struct {
	UserID  int64   `json:"user_id,omitempty"`
	Flashes []Flash `json:"flashes,omitempty"`
	jwt.RegisteredClaims
}

// Manager encodes sessions into cookies and back.
type Manager struct {
	secret     []byte
	lifetime   time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewManager creates a Manager from the session configuration.
func NewManager(cfg *config.SessionConfig) *Manager {
	return &Manager{
		secret:     []byte(cfg.SecretKey),
		lifetime:   cfg.Lifetime,
		cookieName: cfg.CookieName,
		secure:     cfg.CookieSecure,
		now:        time.Now,
	}
}

// Encode signs s into a token valid for the configured lifetime.
func (m *Manager) Encode(s *Session) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := m.now()
	c := &claims{
		UserID:  s.UserID,
		Flashes: s.Flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			Issuer:    "snsapp",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns the session it carries.
func (m *Manager) Decode(token string) (*Session, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("session token is invalid")
	}
	return &Session{ID: c.ID, UserID: c.UserID, Flashes: c.Flashes}, nil
}

// Load reads the session from the request cookie. It never fails: anything unreadable
// is treated as a fresh, empty session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}
	s, err := m.Decode(cookie.Value)
	if err != nil {
		return &Session{}
	}
	return s
}

// Save writes s back as a cookie. An empty session expires the cookie instead.
// It must be called before anything is written to the response body.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s.empty() {
		m.expire(w)
		return nil
	}
	value, err := m.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.lifetime / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey string

const sessionContextKey contextKey = "session"

// NewContext returns a child context carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the session loaded by Middleware, or an empty one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

// Middleware loads the session of every request into its context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}
