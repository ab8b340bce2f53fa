package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/inkpost/inkpost/internal/store"
)

func resolveTestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "inkpost-mw-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	f.Close()

	db, err := store.NewDB(f.Name())
	if err != nil {
		os.Remove(f.Name())
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		os.Remove(f.Name())
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(f.Name())
	})

	return db
}

func TestResolveUser(t *testing.T) {
	db := resolveTestDB(t)
	q := store.New(db)
	sm := scs.New() // default in-memory store is fine here
	sm.Lifetime = time.Hour

	now := time.Now()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Email:        "resolve@example.com",
		PasswordHash: "hash",
		Role:         store.RoleMember,
		Name:         "Resolver",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	var got *store.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r)
	})
	handler := sm.LoadAndSave(ResolveUser(sm, db)(inner))

	login := func(userID int64) *http.Cookie {
		t.Helper()
		var cookie *http.Cookie
		loginHandler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sm.Put(r.Context(), SessionKeyUserID, userID)
		}))
		rec := httptest.NewRecorder()
		loginHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		for _, c := range rec.Result().Cookies() {
			if c.Name == sm.Cookie.Name {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("no session cookie issued")
		}
		return cookie
	}

	t.Run("no session is anonymous", func(t *testing.T) {
		got = nil
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if got != nil {
			t.Errorf("GetUser() = %v, want nil", got)
		}
	})

	t.Run("valid session resolves user", func(t *testing.T) {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(login(user.ID))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if got == nil {
			t.Fatal("GetUser() = nil, want user")
		}
		if got.ID != user.ID {
			t.Errorf("user.ID = %d, want %d", got.ID, user.ID)
		}
	})

	t.Run("session for deleted user continues anonymous", func(t *testing.T) {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(login(99999))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if got != nil {
			t.Errorf("GetUser() = %v, want nil for dangling session", got)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d (request should proceed)", rec.Code, http.StatusOK)
		}
	})
}
