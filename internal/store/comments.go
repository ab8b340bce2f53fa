package store

import (
	"context"
	"time"
)

// CreateCommentParams holds the fields for CreateComment.
type CreateCommentParams struct {
	Body      string
	UserID    int64
	PostID    int64
	CreatedAt time.Time
}

// CreateComment attaches a comment to a post. The foreign keys bind it to
// the commenting user and the target post in one insert.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO comments (body, user_id, post_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, body, user_id, post_id, created_at`,
		arg.Body, arg.UserID, arg.PostID, arg.CreatedAt,
	)
	var c Comment
	err := row.Scan(&c.ID, &c.Body, &c.UserID, &c.PostID, &c.CreatedAt)
	return c, err
}

// ListCommentsForPostRow is a comment joined with its author's display name.
type ListCommentsForPostRow struct {
	Comment
	AuthorName string
}

// ListCommentsForPost returns a post's comments in insertion order.
func (q *Queries) ListCommentsForPost(ctx context.Context, postID int64) ([]ListCommentsForPostRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.id, c.body, c.user_id, c.post_id, c.created_at, u.name
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ?
		ORDER BY c.id`,
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []ListCommentsForPostRow
	for rows.Next() {
		var r ListCommentsForPostRow
		if err := rows.Scan(&r.ID, &r.Body, &r.UserID, &r.PostID, &r.CreatedAt, &r.AuthorName); err != nil {
			return nil, err
		}
		comments = append(comments, r)
	}
	return comments, rows.Err()
}

// CountCommentsForPost returns the number of comments on a post.
func (q *Queries) CountCommentsForPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments WHERE post_id = ?", postID).Scan(&count)
	return count, err
}

// CountComments returns the total number of comments.
func (q *Queries) CountComments(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}
