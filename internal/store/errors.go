package store

import (
	"errors"
	"strings"
)

// Domain errors mapped from storage-level integrity violations. Handlers
// match on these instead of driver error strings.
var (
	// ErrDuplicateEmail is returned when a registration reuses an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateTitle is returned when a post reuses an existing title.
	ErrDuplicateTitle = errors.New("post title already exists")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation on the given column (e.g. "users.email"). The modernc driver
// exposes constraint failures only through the error text.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
