// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/inkpost/inkpost/internal/middleware"
	"github.com/inkpost/inkpost/internal/render"
	"github.com/inkpost/inkpost/internal/store"
)

// FrontendHandler serves the public pages.
type FrontendHandler struct {
	queries   *store.Queries
	renderer  *render.Renderer
	sanitizer *bluemonday.Policy
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(db *sql.DB, renderer *render.Renderer) *FrontendHandler {
	return &FrontendHandler{
		queries:  store.New(db),
		renderer: renderer,
		// Comments are plain text; strip all markup.
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Home renders the post listing, newest first.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queries.ListPosts(r.Context())
	if err != nil {
		logAndInternalError(w, "listing posts", "error", err)
		return
	}

	data := render.TemplateData{Title: "Home", Data: posts}
	if err := h.renderer.Render(w, r, "index", data); err != nil {
		logAndInternalError(w, "rendering home page", "error", err)
	}
}

// postPage is the template payload for a single post view.
type postPage struct {
	Post     store.Post
	Comments []store.ListCommentsForPostRow
}

// ShowPost renders a single post with its comments.
func (h *FrontendHandler) ShowPost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	comments, err := h.queries.ListCommentsForPost(r.Context(), post.ID)
	if err != nil {
		logAndInternalError(w, "listing comments", "error", err, "post_id", post.ID)
		return
	}

	data := render.TemplateData{
		Title: post.Title,
		Data:  postPage{Post: post, Comments: comments},
	}
	if err := h.renderer.Render(w, r, "post", data); err != nil {
		logAndInternalError(w, "rendering post page", "error", err)
	}
}

// AddComment handles the comment form on a post page. Anonymous visitors
// are sent to the login page and nothing is persisted.
func (h *FrontendHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		flashError(w, r, h.renderer, redirectLogin, "You need to log in to submit a comment.")
		return
	}

	postURL := fmt.Sprintf(redirectPostID, id)

	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	body := strings.TrimSpace(h.sanitizer.Sanitize(r.FormValue("comment")))
	if body == "" {
		flashError(w, r, h.renderer, postURL, "Comment cannot be empty.")
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	comment, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		Body:      body,
		UserID:    user.ID,
		PostID:    post.ID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "creating comment", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("comment created", "comment_id", comment.ID, "post_id", post.ID, "user_id", user.ID)
	flashSuccess(w, r, h.renderer, postURL, "Thanks for your comment!")
}

// About renders the about page.
func (h *FrontendHandler) About(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "about", render.TemplateData{Title: "About"}); err != nil {
		logAndInternalError(w, "rendering about page", "error", err)
	}
}

// Contact renders the contact page.
func (h *FrontendHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "contact", render.TemplateData{Title: "Contact"}); err != nil {
		logAndInternalError(w, "rendering contact page", "error", err)
	}
}
