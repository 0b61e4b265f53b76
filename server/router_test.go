package server_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/snsapp/background"
	"github.com/user/snsapp/config"
	"github.com/user/snsapp/memstore"
	"github.com/user/snsapp/render"
	"github.com/user/snsapp/server"
	"github.com/user/snsapp/session"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []background.Event
}

func (r *eventRecorder) Enqueue(e background.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *eventRecorder) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject)
	}
	return out
}

type testApp struct {
	srv    *httptest.Server
	store  *memstore.Store
	events *eventRecorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	sessions := session.NewManager(&config.SessionConfig{
		SecretKey:  "test-secret",
		Lifetime:   time.Hour,
		CookieName: "session",
	})
	rd, err := render.New(sessions)
	require.NoError(t, err)

	store := memstore.New(nil)
	events := &eventRecorder{}
	handler, err := server.NewRouter(server.Options{
		Sessions: sessions,
		Renderer: rd,
		Users:    store.Users,
		Posts:    store.Posts,
		Comments: store.Comments,
		Events:   events,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, store: store, events: events}
}

// browser is one visitor with its own cookie jar. Redirects are not followed so tests
// can assert on them.
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		app: a,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type page struct {
	status       int
	location     string
	cacheControl string
	body         string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return page{
		status:       resp.StatusCode,
		location:     resp.Header.Get("Location"),
		cacheControl: resp.Header.Get("Cache-Control"),
		body:         string(body),
	}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// postFollow posts and then loads the redirect target, returning that page.
func (b *browser) postFollow(path string, form url.Values) page {
	b.t.Helper()
	p := b.post(path, form)
	require.Equal(b.t, http.StatusFound, p.status, "POST %s body: %s", path, p.body)
	return b.get(p.location)
}

func signupForm(name, email, password string) url.Values {
	return url.Values{
		"name":                  {name},
		"email":                 {email},
		"password":              {password},
		"password_confirmation": {password},
	}
}

func (b *browser) signup(name, email, password string) {
	b.t.Helper()
	p := b.post("/signup", signupForm(name, email, password))
	require.Equal(b.t, http.StatusFound, p.status)
	require.Equal(b.t, "/posts", p.location)
}

func TestSignupLoginRoundTrip(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	b.signup("Alice", "alice@example.com", "pw")
	assert.Equal(t, http.StatusOK, b.get("/posts").status)

	p := b.get("/logout")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)

	p = b.get("/posts")
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/login", p.location)

	p = b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"pw"}})
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/posts", p.location)
	assert.Equal(t, http.StatusOK, b.get("/posts").status)
}

func TestLongPasswordRoundTrip(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	password := strings.Repeat("a", 80)

	b.signup("Alice", "alice@example.com", password)
	assert.Equal(t, 1, app.store.Users.Count())
	assert.Equal(t, http.StatusFound, b.get("/logout").status)

	p := b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {password}})
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/posts", p.location)

	b.get("/logout")
	p = b.postFollow("/login", url.Values{"email": {"alice@example.com"}, "password": {strings.Repeat("a", 72)}})
	assert.Contains(t, p.body, "Email or password is incorrect")
}

func TestSignupRejections(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	form := signupForm("Alice", "alice@example.com", "pw")
	form.Set("password_confirmation", "other")
	p := b.post("/signup", form)
	assert.Equal(t, "/signup", p.location)
	assert.Contains(t, b.get("/signup").body, "The two passwords do not match")

	form = signupForm("", "alice@example.com", "pw")
	assert.Contains(t, b.postFollow("/signup", form).body, "There are empty fields in the form")

	form = signupForm("Alice", "alice-at-example.com", "pw")
	assert.Contains(t, b.postFollow("/signup", form).body, "That is not a valid email address")

	assert.Zero(t, app.store.Users.Count())
}

func TestDuplicateEmailCreatesNoUser(t *testing.T) {
	app := newTestApp(t)
	app.browser(t).signup("Alice", "alice@example.com", "pw")

	other := app.browser(t)
	p := other.postFollow("/signup", signupForm("Mallory", "alice@example.com", "pw2"))
	assert.Contains(t, p.body, "That email address is already registered")
	assert.Equal(t, 1, app.store.Users.Count())

	// Still anonymous: the protected pages bounce to the login form.
	assert.Equal(t, "/login", other.get("/posts").location)
}

func TestLoginRejections(t *testing.T) {
	app := newTestApp(t)
	app.browser(t).signup("Alice", "alice@example.com", "pw")
	b := app.browser(t)

	p := b.postFollow("/login", url.Values{"email": {""}, "password": {"pw"}})
	assert.Contains(t, p.body, "Email or password is empty")

	p = b.postFollow("/login", url.Values{"email": {"alice@example.com"}, "password": {"nope"}})
	assert.Contains(t, p.body, "Email or password is incorrect")

	p = b.postFollow("/login", url.Values{"email": {"nobody@example.com"}, "password": {"pw"}})
	assert.Contains(t, p.body, "Email or password is incorrect")

	assert.Equal(t, "/login", b.get("/posts").location)
}

func TestIndexAndGuestRedirects(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	assert.Equal(t, "/login", b.get("/").location)
	assert.Equal(t, http.StatusOK, b.get("/login").status)
	assert.Equal(t, http.StatusOK, b.get("/signup").status)

	b.signup("Alice", "alice@example.com", "pw")
	assert.Equal(t, "/posts", b.get("/").location)
	assert.Equal(t, "/posts", b.get("/login").location)
	assert.Equal(t, "/posts", b.get("/signup").location)
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.signup("Alice", "alice@example.com", "pw")

	p := alice.postFollow("/posts", url.Values{"content": {"   "}})
	assert.Contains(t, p.body, "Post content is empty")

	p = alice.postFollow("/posts", url.Values{"content": {"hello from alice"}})
	assert.Contains(t, p.body, "Your post has been published")
	assert.Contains(t, p.body, "hello from alice")
	assert.Contains(t, p.body, "Alice")

	posts, err := app.store.Posts.GetAll(t.Context())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	postPath := fmt.Sprintf("/posts/%d", posts[0].ID)

	detail := alice.get(postPath)
	assert.Equal(t, http.StatusOK, detail.status)
	assert.Contains(t, detail.body, "hello from alice")
	assert.Equal(t, "no-store", detail.cacheControl)

	// Another user cannot delete it.
	bob := app.browser(t)
	bob.signup("Bob", "bob@example.com", "pw")
	p = bob.postFollow(postPath+"/delete", nil)
	assert.Contains(t, p.body, "You cannot delete this post")
	raw, ok := app.store.Posts.Raw(posts[0].ID)
	require.True(t, ok)
	assert.Nil(t, raw.DeletedAt)

	p = alice.postFollow(postPath+"/delete", nil)
	assert.Contains(t, p.body, "The post has been deleted")
	assert.NotContains(t, p.body, "hello from alice")

	raw, _ = app.store.Posts.Raw(posts[0].ID)
	assert.NotNil(t, raw.DeletedAt, "row is kept")

	assert.Equal(t, http.StatusNotFound, alice.get(postPath).status)
	assert.Equal(t, http.StatusNotFound, alice.post(postPath+"/delete", nil).status)

	assert.Equal(t, []string{background.SubjectPostCreated, background.SubjectPostDeleted}, app.events.subjects())
}

func TestPostsListedNewestFirst(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.signup("Alice", "alice@example.com", "pw")
	bob := app.browser(t)
	bob.signup("Bob", "bob@example.com", "pw")

	alice.postFollow("/posts", url.Values{"content": {"first from alice"}})
	bob.postFollow("/posts", url.Values{"content": {"then bob"}})

	p := alice.get("/posts")
	require.Equal(t, http.StatusOK, p.status)
	first := strings.Index(p.body, "first from alice")
	second := strings.Index(p.body, "then bob")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, second, first, "newest post comes first")

	// Each post carries its own author's name.
	assert.Contains(t, p.body[second:first], "Alice")
	assert.Contains(t, p.body[:second], "Bob")
}

func TestComments(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	alice.signup("Alice", "alice@example.com", "pw")
	alice.post("/posts", url.Values{"content": {"a post"}})

	posts, err := app.store.Posts.GetAll(t.Context())
	require.NoError(t, err)
	postPath := fmt.Sprintf("/posts/%d", posts[0].ID)

	p := alice.postFollow(postPath+"/comments", url.Values{"content": {""}})
	assert.Contains(t, p.body, "Comment content is empty")

	alice.post(postPath+"/comments", url.Values{"content": {"first comment"}})
	p = alice.postFollow(postPath+"/comments", url.Values{"content": {"second comment"}})
	assert.Contains(t, p.body, "Your comment has been posted")

	first := strings.Index(p.body, "first comment")
	second := strings.Index(p.body, "second comment")
	require.True(t, first > 0 && second > 0)
	assert.Less(t, second, first, "newest comment first")
}

func TestCommentOnMissingPostIsStored(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("Alice", "alice@example.com", "pw")

	p := b.post("/posts/999/comments", url.Values{"content": {"into the void"}})
	assert.Equal(t, http.StatusFound, p.status)
	assert.Equal(t, "/posts/999", p.location)

	stored, err := app.store.Comments.GetByPostID(t.Context(), 999)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "into the void", stored[0].Content)

	assert.Equal(t, http.StatusNotFound, b.get("/posts/999").status)
	assert.Equal(t, []string{background.SubjectCommentCreated}, app.events.subjects())
}

func TestErrorPages(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("Alice", "alice@example.com", "pw")

	p := b.get("/posts/abc")
	assert.Equal(t, http.StatusNotFound, p.status)
	assert.Contains(t, p.body, "404 Not found")

	assert.Equal(t, http.StatusNotFound, b.post("/posts/abc/delete", nil).status)
	assert.Equal(t, http.StatusNotFound, b.get("/no/such/page").status)

	req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/posts", strings.NewReader("content=%zz"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p = b.do(req)
	assert.Equal(t, http.StatusBadRequest, p.status)
	assert.Contains(t, p.body, "400 Bad request")
}

func TestCrossSiteFormIsRejected(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	b.signup("Alice", "alice@example.com", "pw")

	req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/posts", strings.NewReader("content=hi"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	p := b.do(req)

	assert.Equal(t, http.StatusBadRequest, p.status)
	posts, err := app.store.Posts.GetAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, posts)
}
