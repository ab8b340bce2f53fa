package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// TestAdminMemberAnonymousScenario walks the three-role lifecycle end to
// end: the first registrant becomes the admin, the second a member, and
// only the admin can manage posts while members may comment and anonymous
// visitors may only read.
func TestAdminMemberAnonymousScenario(t *testing.T) {
	app := newTestApp(t)

	alice := app.newClient(t)
	bob := app.newClient(t)
	anon := app.newClient(t)

	app.register(t, alice, "alice@example.com", "Alice", "correct-horse")
	app.register(t, bob, "bob@example.com", "Bob", "battery-staple")
	app.login(t, alice, "alice@example.com", "correct-horse")
	app.login(t, bob, "bob@example.com", "battery-staple")

	// A member is refused post creation outright.
	resp := app.postForm(t, bob, RouteNewPost, url.Values{
		"title": {"Bob Was Here"},
		"body":  {"should never land"},
	})
	drain(resp)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member POST %s: status = %d, want %d", RouteNewPost, resp.StatusCode, http.StatusForbidden)
	}
	if n, err := app.queries.CountPosts(t.Context()); err != nil || n != 0 {
		t.Fatalf("CountPosts after refused create = %d (err %v), want 0", n, err)
	}

	// The admin creates a post and becomes its author.
	resp = app.postForm(t, alice, RouteNewPost, url.Values{
		"title":    {"Hello World"},
		"subtitle": {"first"},
		"body":     {"<p>Welcome to the blog.</p>"},
	})
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("admin POST %s: status = %d, want %d", RouteNewPost, resp.StatusCode, http.StatusSeeOther)
	}

	post, err := app.queries.GetPostBySlug(t.Context(), "hello-world")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	aliceUser := app.mustUser(t, "alice@example.com")
	if post.AuthorID != aliceUser.ID {
		t.Errorf("post.AuthorID = %d, want %d (alice)", post.AuthorID, aliceUser.ID)
	}

	// The new post shows on the home page with its author.
	page := body(t, app.get(t, anon, RouteRoot))
	if !strings.Contains(page, "Hello World by Alice") {
		t.Errorf("home page = %q, want post listed with author", page)
	}

	postURL := fmt.Sprintf(redirectPostID, post.ID)

	// A signed-in member can comment.
	resp = app.postForm(t, bob, postURL, url.Values{"comment": {"Great first post."}})
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("member comment: status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != postURL {
		t.Errorf("member comment Location = %q, want %q", loc, postURL)
	}

	page = body(t, app.get(t, bob, postURL))
	if !strings.Contains(page, "Thanks for your comment!") {
		t.Errorf("post page = %q, want comment confirmation flash", page)
	}
	if !strings.Contains(page, "Great first post. - Bob") {
		t.Errorf("post page = %q, want comment with author name", page)
	}

	// An anonymous visitor is sent to login and nothing is persisted.
	resp = app.postForm(t, anon, postURL, url.Values{"comment": {"drive-by"}})
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("anonymous comment: status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != RouteLogin {
		t.Errorf("anonymous comment Location = %q, want %q", loc, RouteLogin)
	}

	if n, err := app.queries.CountCommentsForPost(t.Context(), post.ID); err != nil || n != 1 {
		t.Fatalf("CountCommentsForPost = %d (err %v), want 1", n, err)
	}
}

func TestPostCreate_DuplicateTitle(t *testing.T) {
	app := newTestApp(t)
	admin := app.newClient(t)
	app.register(t, admin, "alice@example.com", "Alice", "correct-horse")
	app.login(t, admin, "alice@example.com", "correct-horse")

	form := url.Values{"title": {"Unique Title"}, "body": {"body one"}}
	drain(app.postForm(t, admin, RouteNewPost, form))

	form.Set("body", "body two")
	resp := app.postForm(t, admin, RouteNewPost, form)
	drain(resp)
	if loc := resp.Header.Get("Location"); loc != RouteNewPost {
		t.Fatalf("Location = %q, want %q", loc, RouteNewPost)
	}

	page := body(t, app.get(t, admin, RouteNewPost))
	if !strings.Contains(page, "A post with that title already exists.") {
		t.Errorf("flash = %q, want duplicate title message", page)
	}

	if n, err := app.queries.CountPosts(t.Context()); err != nil || n != 1 {
		t.Fatalf("CountPosts = %d (err %v), want 1", n, err)
	}
}

func TestPostUpdate_PreservesAuthor(t *testing.T) {
	app := newTestApp(t)

	alice := app.newClient(t)
	carol := app.newClient(t)
	app.register(t, alice, "alice@example.com", "Alice", "correct-horse")
	app.login(t, alice, "alice@example.com", "correct-horse")

	drain(app.postForm(t, alice, RouteNewPost, url.Values{
		"title": {"Original"},
		"body":  {"original body"},
	}))
	post, err := app.queries.GetPostBySlug(t.Context(), "original")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}

	// Promote a second user to admin directly and have them edit.
	aliceUser := app.mustUser(t, "alice@example.com")
	app.register(t, carol, "carol@example.com", "Carol", "letmein-please")
	if _, err := app.db.ExecContext(t.Context(),
		`UPDATE users SET role = 'admin' WHERE email = 'carol@example.com'`); err != nil {
		t.Fatalf("promoting carol: %v", err)
	}
	app.login(t, carol, "carol@example.com", "letmein-please")

	editURL := fmt.Sprintf("/edit-post/%d", post.ID)
	resp := app.postForm(t, carol, editURL, url.Values{
		"title": {"Edited"},
		"body":  {"edited body"},
	})
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("edit: status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	updated, err := app.queries.GetPostByID(t.Context(), post.ID)
	if err != nil {
		t.Fatalf("GetPostByID: %v", err)
	}
	if updated.Title != "Edited" {
		t.Errorf("Title = %q, want %q", updated.Title, "Edited")
	}
	if updated.AuthorID != aliceUser.ID {
		t.Errorf("AuthorID = %d, want %d (editing must not reassign the author)", updated.AuthorID, aliceUser.ID)
	}
}

func TestPostDelete_RemovesPostAndComments(t *testing.T) {
	app := newTestApp(t)
	admin := app.newClient(t)
	app.register(t, admin, "alice@example.com", "Alice", "correct-horse")
	app.login(t, admin, "alice@example.com", "correct-horse")

	drain(app.postForm(t, admin, RouteNewPost, url.Values{
		"title": {"Doomed"},
		"body":  {"short lived"},
	}))
	post, err := app.queries.GetPostBySlug(t.Context(), "doomed")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}

	postURL := fmt.Sprintf(redirectPostID, post.ID)
	drain(app.postForm(t, admin, postURL, url.Values{"comment": {"so long"}}))

	resp := app.get(t, admin, fmt.Sprintf("/delete/%d", post.ID))
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete: status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	if n, _ := app.queries.CountPosts(t.Context()); n != 0 {
		t.Errorf("CountPosts = %d, want 0", n)
	}
	if n, _ := app.queries.CountComments(t.Context()); n != 0 {
		t.Errorf("CountComments = %d, want 0", n)
	}

	resp = app.get(t, admin, postURL)
	drain(resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted post: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestPostDelete_UnknownID(t *testing.T) {
	app := newTestApp(t)
	admin := app.newClient(t)
	app.register(t, admin, "alice@example.com", "Alice", "correct-horse")
	app.login(t, admin, "alice@example.com", "correct-horse")

	resp := app.get(t, admin, "/delete/99999")
	drain(resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestPostBody_SanitizesScript(t *testing.T) {
	app := newTestApp(t)
	admin := app.newClient(t)
	app.register(t, admin, "alice@example.com", "Alice", "correct-horse")
	app.login(t, admin, "alice@example.com", "correct-horse")

	drain(app.postForm(t, admin, RouteNewPost, url.Values{
		"title": {"Scripted"},
		"body":  {`<p>fine</p><script>alert("xss")</script>`},
	}))

	post, err := app.queries.GetPostBySlug(t.Context(), "scripted")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	if strings.Contains(post.Body, "<script>") {
		t.Errorf("Body = %q, script tag survived sanitization", post.Body)
	}
	if !strings.Contains(post.Body, "<p>fine</p>") {
		t.Errorf("Body = %q, benign markup was stripped", post.Body)
	}
}
