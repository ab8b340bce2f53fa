// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/inkpost/inkpost/internal/auth"
	"github.com/inkpost/inkpost/internal/middleware"
	"github.com/inkpost/inkpost/internal/render"
	"github.com/inkpost/inkpost/internal/store"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
const SessionKeyUserID = "user_id"

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	db              *sql.DB
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		db:              db,
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "register", render.TemplateData{Title: "Register"}); err != nil {
		logAndInternalError(w, "rendering register page", "error", err)
	}
}

// Register handles the registration form submission. The new account gets
// no session; the visitor logs in explicitly afterwards.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteRegister) {
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")

	if email == "" || name == "" || password == "" {
		flashError(w, r, h.renderer, RouteRegister, "Email, name and password are required.")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		flashError(w, r, h.renderer, RouteRegister, "Please enter a valid email address.")
		return
	}
	if len(password) < MinPasswordLength {
		flashError(w, r, h.renderer, RouteRegister, "Password must be at least 8 characters long.")
		return
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "hashing password", "error", err)
		return
	}

	user, err := store.Register(r.Context(), h.db, store.RegisterParams{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			flashError(w, r, h.renderer, redirectLogin, "This email is registered already, please log in instead.")
			return
		}
		logAndInternalError(w, "registering user", "error", err)
		return
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	flashSuccess(w, r, h.renderer, redirectRoot, "User registered successfully!")
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "login", render.TemplateData{Title: "Log In"}); err != nil {
		logAndInternalError(w, "rendering login page", "error", err)
	}
}

// Login handles the login form submission.
//
// The failure messages are deliberately asymmetric, matching the site's
// long-standing UX: an unknown email gets the generic message, a known
// email with a wrong password gets the specific one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required.")
		return
	}

	// Check if account is locked
	if h.loginProtection != nil {
		if locked, _ := h.loginProtection.IsAccountLocked(email); locked {
			flashError(w, r, h.renderer, redirectLogin, "Too many failed attempts. Please try again later.")
			return
		}
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", email)
		} else {
			slog.Error("database error during login", "error", err)
		}
		// Record failed attempt even for non-existent users
		if h.loginProtection != nil {
			h.loginProtection.RecordFailedAttempt(email)
		}
		flashError(w, r, h.renderer, redirectLogin, "Email or password is incorrect, please try again.")
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Email or password is incorrect, please try again.")
		return
	}

	if !valid {
		slog.Debug("invalid password attempt", "email", email)
		if h.loginProtection != nil {
			h.loginProtection.RecordFailedAttempt(email)
		}
		flashError(w, r, h.renderer, redirectLogin, "Password is incorrect, please try again.")
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Re-hash password if it uses old parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		// Don't block login on this error
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	flashSuccess(w, r, h.renderer, redirectRoot, "Successfully logged in as "+user.Name)
}

// Logout destroys the current session. Logging out while anonymous is not
// an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	if userID > 0 {
		slog.Info("user logged out", "user_id", userID)
	}

	flashAndRedirect(w, r, h.renderer, redirectRoot, "Successfully logged out.", "info")
}
