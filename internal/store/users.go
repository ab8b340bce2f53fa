package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const userColumns = "id, email, password_hash, role, name, created_at, updated_at, last_login_at"

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user. A duplicate email is reported as
// ErrDuplicateEmail; no partial record is left behind.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, role, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.CreatedAt, arg.UpdatedAt,
	)
	user, err := scanUser(row)
	if isUniqueViolation(err, "users.email") {
		return User{}, ErrDuplicateEmail
	}
	return user, err
}

// GetUserByEmail returns the user with the given email.
// Returns sql.ErrNoRows if no such user exists.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetUserByID returns the user with the given ID.
// Returns sql.ErrNoRows if no such user exists.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// CountUsers returns the total number of registered users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// UpdateUserLastLoginParams holds the fields for UpdateUserLastLogin.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin records the time of a successful login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = ? WHERE id = ?", arg.LastLoginAt, arg.ID)
	return err
}

// UpdateUserPasswordParams holds the fields for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// RegisterParams holds the fields for Register.
type RegisterParams struct {
	Email        string
	Name         string
	PasswordHash string
}

// Register creates a new account inside a single transaction. The first
// account ever created gets the admin role; every later account is a member.
// Counting and inserting share the transaction so two concurrent first
// registrations cannot both become admin.
func Register(ctx context.Context, db *sql.DB, arg RegisterParams) (User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := New(tx)

	count, err := q.CountUsers(ctx)
	if err != nil {
		return User{}, fmt.Errorf("counting users: %w", err)
	}

	role := RoleMember
	if count == 0 {
		role = RoleAdmin
	}

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         role,
		Name:         arg.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return User{}, err
	}

	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("committing transaction: %w", err)
	}

	return user, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}
