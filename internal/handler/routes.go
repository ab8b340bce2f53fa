package handler

import (
	"compress/gzip"
	"database/sql"
	"io/fs"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/inkpost/inkpost/internal/middleware"
	"github.com/inkpost/inkpost/internal/render"
)

// RouterConfig wires the pieces the HTTP surface needs.
type RouterConfig struct {
	DB              *sql.DB
	SessionManager  *scs.SessionManager
	Renderer        *render.Renderer
	LoginProtection *middleware.LoginProtection
	IsDev           bool

	// CSRFKey enables CSRF protection when set. Tests leave it nil.
	CSRFKey []byte

	// StaticFS serves /static/* when set.
	StaticFS fs.FS
}

// NewRouter assembles the full route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.Compress(gzip.DefaultCompression))
	if !cfg.IsDev {
		r.Use(middleware.NewGlobalRateLimiter(50, 100).Middleware())
	}
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDev)))
	if cfg.CSRFKey != nil {
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(cfg.CSRFKey, cfg.IsDev)))
	}
	r.Use(cfg.SessionManager.LoadAndSave)
	r.Use(middleware.ResolveUser(cfg.SessionManager, cfg.DB))

	authHandler := NewAuthHandler(cfg.DB, cfg.Renderer, cfg.SessionManager, cfg.LoginProtection)
	postHandler := NewPostHandler(cfg.DB, cfg.Renderer)
	frontendHandler := NewFrontendHandler(cfg.DB, cfg.Renderer)
	healthHandler := NewHealthHandler(cfg.DB)

	if cfg.StaticFS != nil {
		static := http.StripPrefix("/static/", http.FileServerFS(cfg.StaticFS))
		r.With(middleware.StaticCache(86400)).Handle("/static/*", static)
	}

	// Public pages
	r.Get(RouteRoot, frontendHandler.Home)
	r.Get(RoutePostID, frontendHandler.ShowPost)
	r.Get(RouteAbout, frontendHandler.About)
	r.Get(RouteContact, frontendHandler.Contact)
	r.Get(RouteHealth, healthHandler.Health)

	// Auth
	r.Get(RouteRegister, authHandler.RegisterForm)
	r.Post(RouteRegister, authHandler.Register)
	r.Group(func(r chi.Router) {
		if cfg.LoginProtection != nil {
			r.Use(cfg.LoginProtection.Middleware())
		}
		r.Get(RouteLogin, authHandler.LoginForm)
		r.Post(RouteLogin, authHandler.Login)
	})
	r.Get(RouteLogout, authHandler.Logout)

	// Commenting requires a signed-in user; the handler itself redirects
	// anonymous visitors so nothing is persisted.
	r.Post(RoutePostID, frontendHandler.AddComment)

	// Admin-only post management
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get(RouteNewPost, postHandler.NewForm)
		r.Post(RouteNewPost, postHandler.Create)
		r.Get(RouteEditPostID, postHandler.EditForm)
		r.Post(RouteEditPostID, postHandler.Update)
		r.Get(RouteDeleteID, postHandler.Delete)
	})

	return r
}
