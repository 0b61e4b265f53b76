// Package render turns handler results into HTTP responses: HTML pages built from the
// embedded templates, redirects, and the error pages. It is the only place that writes
// the session cookie back, so flashes and logins survive exactly one round trip.
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DateLayout is how timestamps are shown on every page.
const DateLayout = "2006-01-02 15:04"

// Page names accepted by HTML.
const (
	PageSignup     = "signup"
	PageLogin      = "login"
	PagePosts      = "posts"
	PagePostDetail = "post_detail"
)

var pageTitles = map[string]string{
	PageSignup:     "Sign up",
	PageLogin:      "Log in",
	PagePosts:      "Posts",
	PagePostDetail: "Post",
	"400":          "Bad request",
	"404":          "Not found",
	"500":          "Server error",
}

// PageData is the root object every template receives.
type PageData struct {
	Title    string
	LoggedIn bool
	UserID   int64
	Flashes  []session.Flash
	Data     any
}

// Renderer writes pages and redirects.
type Renderer struct {
	sessions *session.Manager
	pages    map[string]*template.Template
}

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// New parses all embedded templates. Each page is parsed together with the layout.
func New(sessions *session.Manager) (*Renderer, error) {
	funcs := template.FuncMap{"formatDate": formatDate}

	pages := make(map[string]*template.Template, len(pageTitles))
	for name := range pageTitles {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{sessions: sessions, pages: pages}, nil
}

// HTML renders page with status. Pending flashes are consumed and the session is saved.
func (rd *Renderer) HTML(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.Error(w, r, apperror.NewInternalError("unknown page "+page, nil))
		return
	}

	s := session.FromContext(r.Context())
	pd := PageData{
		Title:    pageTitles[page],
		LoggedIn: s.LoggedIn(),
		UserID:   s.UserID,
		Flashes:  s.PopFlashes(),
		Data:     data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pd); err != nil {
		log.Printf("[%s] failed to render %s: %v", middleware.GetReqID(r.Context()), page, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rd.saveSession(w, r, s)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[%s] failed to write %s: %v", middleware.GetReqID(r.Context()), page, err)
	}
}

// Redirect saves the session and answers 302 Found.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, url string) {
	rd.saveSession(w, r, session.FromContext(r.Context()))
	http.Redirect(w, r, url, http.StatusFound)
}

// Error renders the error page matching err. Server-side failures are logged with the
// request id; client errors are not.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.FromError(err)
	if appErr == nil {
		appErr = apperror.NewInternalError("error writer called without an error", nil)
	}

	status := appErr.StatusCode()
	page := "500"
	switch status {
	case http.StatusBadRequest:
		page = "400"
	case http.StatusNotFound:
		page = "404"
	default:
		status = http.StatusInternalServerError
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, appErr)
	}

	tmpl := rd.pages[page]
	s := session.FromContext(r.Context())
	pd := PageData{
		Title:    pageTitles[page],
		LoggedIn: s.LoggedIn(),
		UserID:   s.UserID,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pd); err != nil {
		log.Printf("[%s] failed to render error page %s: %v", middleware.GetReqID(r.Context()), page, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound is the router's fallback for unknown paths and methods.
func (rd *Renderer) NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rd.Error(w, r, apperror.NewNotFoundError("no route for "+r.Method+" "+r.URL.Path, nil))
	}
}

// IDParam parses the {id} URL parameter. Anything that is not an integer is a
// NotFoundError, so such paths render the 404 page.
func IDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.NewNotFoundError("invalid id "+strconv.Quote(raw), nil)
	}
	return id, nil
}

// Recoverer turns a panic in a handler into a logged 500 page.
func (rd *Renderer) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[%s] panic: %v\n%s", middleware.GetReqID(r.Context()), rec, debug.Stack())
			rd.Error(w, r, apperror.NewInternalError(fmt.Sprint("panic: ", rec), nil))
		}()
		next.ServeHTTP(w, r)
	})
}

// Timeout bounds each request's context by d. A handler that gives up on the expired
// context without writing anything gets the 500 page.
func (rd *Renderer) Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.Status() == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				rd.Error(ww, r, apperror.NewInternalError("request timed out", ctx.Err()))
			}
		})
	}
}

func (rd *Renderer) saveSession(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := rd.sessions.Save(w, s); err != nil {
		log.Printf("[%s] failed to save session: %v", middleware.GetReqID(r.Context()), err)
	}
}
