package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const postColumns = "id, title, slug, subtitle, body, image_url, author_id, created_at, updated_at"

// CreatePostParams holds the fields for CreatePost.
type CreatePostParams struct {
	Title     string
	Slug      string
	Subtitle  string
	Body      string
	ImageURL  string
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePost inserts a new post. A duplicate title is reported as
// ErrDuplicateTitle.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, slug, subtitle, body, image_url, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+postColumns,
		arg.Title, arg.Slug, arg.Subtitle, arg.Body, arg.ImageURL, arg.AuthorID,
		arg.CreatedAt, arg.UpdatedAt,
	)
	post, err := scanPost(row)
	if isUniqueViolation(err, "posts.title") || isUniqueViolation(err, "posts.slug") {
		return Post{}, ErrDuplicateTitle
	}
	return post, err
}

// GetPostByID returns the post with the given ID.
// Returns sql.ErrNoRows if no such post exists.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	return scanPost(row)
}

// GetPostBySlug returns the post with the given slug.
// Returns sql.ErrNoRows if no such post exists.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE slug = ?", slug)
	return scanPost(row)
}

// ListPostsRow is a post joined with its author's display name.
type ListPostsRow struct {
	Post
	AuthorName string
}

// ListPosts returns all posts, newest first, with author names.
func (q *Queries) ListPosts(ctx context.Context) ([]ListPostsRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.slug, p.subtitle, p.body, p.image_url, p.author_id,
		       p.created_at, p.updated_at, u.name
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []ListPostsRow
	for rows.Next() {
		var r ListPostsRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Slug, &r.Subtitle, &r.Body, &r.ImageURL,
			&r.AuthorID, &r.CreatedAt, &r.UpdatedAt, &r.AuthorName); err != nil {
			return nil, err
		}
		posts = append(posts, r)
	}
	return posts, rows.Err()
}

// CountPosts returns the total number of posts.
func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// UpdatePostParams holds the fields for UpdatePost. The author is
// deliberately not part of an update: editing a post does not reassign it.
type UpdatePostParams struct {
	ID        int64
	Title     string
	Slug      string
	Subtitle  string
	Body      string
	ImageURL  string
	UpdatedAt time.Time
}

// UpdatePost updates a post's content fields. A duplicate title is reported
// as ErrDuplicateTitle. Returns sql.ErrNoRows if the post does not exist.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE posts
		SET title = ?, slug = ?, subtitle = ?, body = ?, image_url = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+postColumns,
		arg.Title, arg.Slug, arg.Subtitle, arg.Body, arg.ImageURL, arg.UpdatedAt, arg.ID,
	)
	post, err := scanPost(row)
	if isUniqueViolation(err, "posts.title") || isUniqueViolation(err, "posts.slug") {
		return Post{}, ErrDuplicateTitle
	}
	return post, err
}

// DeletePost removes a post and its comments in a single transaction.
// The schema's ON DELETE CASCADE covers the comments as well; the explicit
// delete keeps the behavior independent of the foreign_keys pragma.
func DeletePost(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE post_id = ?", id); err != nil {
		return fmt.Errorf("deleting comments: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanPost(row *sql.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Subtitle, &p.Body, &p.ImageURL,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
