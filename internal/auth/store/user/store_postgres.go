// Package user persists credential-store records.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"libris/internal/auth/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
	txcontext "libris/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL. Pure I/O; uniqueness and
// active-only policies are expressed in the queries, everything else belongs
// in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `id, username, email, first_name, last_name, role, department, employee_id, password_hash, is_active, created_at`

// FindActiveByUsername looks a user up by exact, case-sensitive username
// match among active users. Inactive users are indistinguishable from absent
// ones.
func (s *PostgresStore) FindActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 AND is_active = TRUE
	`
	user, err := scanUser(s.querier(ctx).QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return user, nil
}

// FindActiveByID retrieves an active user by ID.
func (s *PostgresStore) FindActiveByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND is_active = TRUE
	`
	user, err := scanUser(s.querier(ctx).QueryRowContext(ctx, query, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// Create inserts a new user. A username or email collision surfaces as
// sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, first_name, last_name, role, department, employee_id, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		user.ID.String(),
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		nullable(user.Department),
		nullable(user.EmployeeID),
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*models.User, error) {
	var user models.User
	var rawID string
	var department, employeeID sql.NullString
	if err := row.Scan(
		&rawID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&department,
		&employeeID,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", rawID, err)
	}
	user.ID = parsed
	user.Department = department.String
	user.EmployeeID = employeeID.String
	return &user, nil
}
