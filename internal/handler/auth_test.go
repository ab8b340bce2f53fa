package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/inkpost/inkpost/internal/store"
)

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)

	app.register(t, client, "alice@example.com", "Alice", "correct-horse")

	alice := app.mustUser(t, "alice@example.com")
	if alice.Role != store.RoleAdmin {
		t.Errorf("first registrant Role = %q, want %q", alice.Role, store.RoleAdmin)
	}

	app.register(t, client, "bob@example.com", "Bob", "battery-staple")

	bob := app.mustUser(t, "bob@example.com")
	if bob.Role != store.RoleMember {
		t.Errorf("second registrant Role = %q, want %q", bob.Role, store.RoleMember)
	}
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)

	app.register(t, client, "alice@example.com", "Alice", "correct-horse")

	alice := app.mustUser(t, "alice@example.com")
	if alice.PasswordHash == "correct-horse" {
		t.Fatal("password stored in plaintext")
	}
	if !strings.HasPrefix(alice.PasswordHash, "$argon2id$") {
		t.Errorf("PasswordHash = %q, want argon2id encoding", alice.PasswordHash)
	}
}

func TestRegister_DuplicateEmailRedirectsToLogin(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)

	app.register(t, client, "alice@example.com", "Alice", "correct-horse")

	resp := app.postForm(t, client, RouteRegister, url.Values{
		"email":    {"alice@example.com"},
		"name":     {"Alice Again"},
		"password": {"another-pass"},
	})
	drain(resp)

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != RouteLogin {
		t.Errorf("Location = %q, want %q", loc, RouteLogin)
	}

	count, err := app.queries.CountUsers(t.Context())
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("CountUsers = %d, want 1 (no partial record)", count)
	}
}

func TestRegister_DoesNotEstablishSession(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)

	app.register(t, client, "alice@example.com", "Alice", "correct-horse")

	// Registration alone must not sign the visitor in.
	resp := app.get(t, client, RouteNewPost)
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != RouteLogin {
		t.Errorf("Location = %q, want %q", loc, RouteLogin)
	}
}

func TestLogin_MessageAsymmetry(t *testing.T) {
	app := newTestApp(t)
	setup := app.newClient(t)
	app.register(t, setup, "alice@example.com", "Alice", "correct-horse")

	t.Run("unknown email gets the generic message", func(t *testing.T) {
		client := app.newClient(t)
		resp := app.postForm(t, client, RouteLogin, url.Values{
			"email":    {"nobody@example.com"},
			"password": {"whatever-pass"},
		})
		drain(resp)
		if loc := resp.Header.Get("Location"); loc != RouteLogin {
			t.Fatalf("Location = %q, want %q", loc, RouteLogin)
		}

		page := body(t, app.get(t, client, RouteLogin))
		if !strings.Contains(page, "Email or password is incorrect") {
			t.Errorf("flash = %q, want generic incorrect message", page)
		}
	})

	t.Run("wrong password gets the specific message", func(t *testing.T) {
		client := app.newClient(t)
		resp := app.postForm(t, client, RouteLogin, url.Values{
			"email":    {"alice@example.com"},
			"password": {"wrong-password"},
		})
		drain(resp)
		if loc := resp.Header.Get("Location"); loc != RouteLogin {
			t.Fatalf("Location = %q, want %q", loc, RouteLogin)
		}

		page := body(t, app.get(t, client, RouteLogin))
		if !strings.Contains(page, "Password is incorrect") {
			t.Errorf("flash = %q, want password incorrect message", page)
		}
	})
}

func TestLogin_WrongPasswordEstablishesNoSession(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)
	app.register(t, client, "alice@example.com", "Alice", "correct-horse")

	resp := app.postForm(t, client, RouteLogin, url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong-password"},
	})
	drain(resp)

	// Still anonymous: the admin gate redirects to login.
	resp = app.get(t, client, RouteNewPost)
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)
	app.register(t, client, "alice@example.com", "Alice", "correct-horse")
	app.login(t, client, "alice@example.com", "correct-horse")

	for i := 0; i < 2; i++ {
		resp := app.get(t, client, RouteLogout)
		drain(resp)
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("logout #%d: status = %d, want %d", i+1, resp.StatusCode, http.StatusSeeOther)
		}
	}

	// Session is gone.
	resp := app.get(t, client, RouteNewPost)
	drain(resp)
	if loc := resp.Header.Get("Location"); loc != RouteLogin {
		t.Errorf("Location = %q, want %q after logout", loc, RouteLogin)
	}
}

func TestLoginForm_RedirectsAuthenticatedUser(t *testing.T) {
	app := newTestApp(t)
	client := app.newClient(t)
	app.register(t, client, "alice@example.com", "Alice", "correct-horse")
	app.login(t, client, "alice@example.com", "correct-horse")

	resp := app.get(t, client, RouteLogin)
	drain(resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != RouteRoot {
		t.Errorf("Location = %q, want %q", loc, RouteRoot)
	}
}
