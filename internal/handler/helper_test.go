package handler

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/inkpost/inkpost/internal/render"
	"github.com/inkpost/inkpost/internal/session"
	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/testutil"
)

// testTemplates is a minimal template set: every page the handlers render,
// with just enough markup to assert against.
func testTemplates() fstest.MapFS {
	page := func(body string) *fstest.MapFile {
		return &fstest.MapFile{Data: []byte(`{{define "content"}}` + body + `{{end}}`)}
	}
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<html><body>` +
				`{{if .Flash}}<div class="flash {{.FlashType}}">{{.Flash}}</div>{{end}}` +
				`{{template "content" .}}</body></html>{{end}}`)},
		"pages/index.html": page(
			`<h1>Posts</h1>{{range .Data}}<article>{{.Title}} by {{.AuthorName}}</article>{{end}}`),
		"pages/post.html": page(
			`<h1>{{.Data.Post.Title}}</h1><div>{{.Data.Post.Body | safe}}</div>` +
				`{{range .Data.Comments}}<p class="comment">{{.Body}} - {{.AuthorName}}</p>{{end}}`),
		"pages/login.html":     page(`<form method="post" action="/login"></form>`),
		"pages/register.html":  page(`<form method="post" action="/register"></form>`),
		"pages/post_form.html": page(`<form method="post">{{with .Data}}{{.Title}}{{end}}</form>`),
		"pages/about.html":     page(`<h1>About</h1>`),
		"pages/contact.html":   page(`<h1>Contact</h1>`),
	}
}

// testApp is a fully wired application over a temporary database.
type testApp struct {
	server  *httptest.Server
	db      *sql.DB
	queries *store.Queries
}

// newTestApp builds the app the same way main does, minus CSRF.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := session.New(db, true)

	renderer, err := render.New(render.Config{
		TemplatesFS:    testTemplates(),
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	router := NewRouter(RouterConfig{
		DB:             db,
		SessionManager: sm,
		Renderer:       renderer,
		IsDev:          true,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{
		server:  server,
		db:      db,
		queries: store.New(db),
	}
}

// newClient returns an HTTP client with its own cookie jar that does not
// follow redirects, so tests can assert on them.
func (app *testApp) newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// get performs a GET and returns the response.
func (app *testApp) get(t *testing.T, client *http.Client, path string) *http.Response {
	t.Helper()

	resp, err := client.Get(app.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// postForm performs a form POST and returns the response.
func (app *testApp) postForm(t *testing.T, client *http.Client, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := client.Post(app.server.URL+path,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// register submits the registration form and drains the response.
func (app *testApp) register(t *testing.T, client *http.Client, email, name, password string) {
	t.Helper()

	resp := app.postForm(t, client, RouteRegister, url.Values{
		"email":    {email},
		"name":     {name},
		"password": {password},
	})
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("register %s: status = %d, want %d", email, resp.StatusCode, http.StatusSeeOther)
	}
}

// login submits the login form and drains the response.
func (app *testApp) login(t *testing.T, client *http.Client, email, password string) {
	t.Helper()

	resp := app.postForm(t, client, RouteLogin, url.Values{
		"email":    {email},
		"password": {password},
	})
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login %s: status = %d, want %d", email, resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != RouteRoot {
		t.Fatalf("login %s: Location = %q, want %q", email, loc, RouteRoot)
	}
}

// body reads and closes the response body.
func body(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(b)
}

// drain discards and closes the response body so connections are reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// mustUser fetches a user by email directly from the store.
func (app *testApp) mustUser(t *testing.T, email string) store.User {
	t.Helper()

	user, err := app.queries.GetUserByEmail(t.Context(), email)
	if err != nil {
		t.Fatalf("GetUserByEmail(%s): %v", email, err)
	}
	return user
}
