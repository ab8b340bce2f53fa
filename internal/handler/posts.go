// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/inkpost/inkpost/internal/middleware"
	"github.com/inkpost/inkpost/internal/render"
	"github.com/inkpost/inkpost/internal/store"
	"github.com/inkpost/inkpost/internal/util"
)

// PostHandler handles the admin-only post management routes.
// Every route here sits behind middleware.RequireAdmin.
type PostHandler struct {
	db        *sql.DB
	queries   *store.Queries
	renderer  *render.Renderer
	sanitizer *bluemonday.Policy
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(db *sql.DB, renderer *render.Renderer) *PostHandler {
	return &PostHandler{
		db:        db,
		queries:   store.New(db),
		renderer:  renderer,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// postForm holds the parsed and sanitized post form fields.
type postForm struct {
	Title    string
	Subtitle string
	Body     string
	ImageURL string
}

// parsePostForm extracts the post fields. The body allows a limited set of
// user-generated-content HTML; everything else is stripped.
func (h *PostHandler) parsePostForm(r *http.Request) (postForm, error) {
	form := postForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Subtitle: strings.TrimSpace(r.FormValue("subtitle")),
		Body:     h.sanitizer.Sanitize(r.FormValue("body")),
		ImageURL: strings.TrimSpace(r.FormValue("image_url")),
	}
	if form.Title == "" || form.Body == "" {
		return form, errors.New("title and body are required")
	}
	return form, nil
}

// NewForm renders the post creation page.
func (h *PostHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	data := render.TemplateData{Title: "New Post"}
	if err := h.renderer.Render(w, r, "post_form", data); err != nil {
		logAndInternalError(w, "rendering new post page", "error", err)
	}
}

// Create handles the post creation form submission. The acting admin
// becomes the author.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteNewPost) {
		return
	}

	form, err := h.parsePostForm(r)
	if err != nil {
		flashError(w, r, h.renderer, RouteNewPost, "Title and body are required.")
		return
	}

	now := time.Now()
	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		Title:     form.Title,
		Slug:      util.Slugify(form.Title),
		Subtitle:  form.Subtitle,
		Body:      form.Body,
		ImageURL:  form.ImageURL,
		AuthorID:  middleware.GetUserID(r),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTitle) {
			flashError(w, r, h.renderer, RouteNewPost, "A post with that title already exists.")
			return
		}
		logAndInternalError(w, "creating post", "error", err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "author_id", post.AuthorID)
	flashSuccess(w, r, h.renderer, redirectRoot, "Post created.")
}

// EditForm renders the post edit page.
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
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

	data := render.TemplateData{Title: "Edit Post", Data: post}
	if err := h.renderer.Render(w, r, "post_form", data); err != nil {
		logAndInternalError(w, "rendering edit post page", "error", err)
	}
}

// Update handles the post edit form submission. The original author is
// kept; editing never reassigns a post.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	editURL := fmt.Sprintf("/edit-post/%d", id)
	if !parseFormOrRedirect(w, r, h.renderer, editURL) {
		return
	}

	form, err := h.parsePostForm(r)
	if err != nil {
		flashError(w, r, h.renderer, editURL, "Title and body are required.")
		return
	}

	post, err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		ID:        id,
		Title:     form.Title,
		Slug:      util.Slugify(form.Title),
		Subtitle:  form.Subtitle,
		Body:      form.Body,
		ImageURL:  form.ImageURL,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "post not found", http.StatusNotFound)
		case errors.Is(err, store.ErrDuplicateTitle):
			flashError(w, r, h.renderer, editURL, "A post with that title already exists.")
		default:
			logAndInternalError(w, "updating post", "error", err, "post_id", id)
		}
		return
	}

	slog.Info("post updated", "post_id", post.ID, "editor_id", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectPostID, post.ID), "Post updated.")
}

// Delete removes a post and its comments.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := store.DeletePost(r.Context(), h.db, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		logAndInternalError(w, "deleting post", "error", err, "post_id", id)
		return
	}

	slog.Info("post deleted", "post_id", id, "user_id", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectRoot, "Post deleted.")
}
