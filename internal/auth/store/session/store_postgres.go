// Package session persists session rows keyed by their opaque token.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"libris/internal/auth/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
	txcontext "libris/pkg/platform/tx"
)

// PostgresStore persists sessions in PostgreSQL. Expiry is not enforced
// here; the service checks it lazily at validation time.
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

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (id, session_token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		session.ID.String(),
		session.Token,
		session.UserID.String(),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, session_token, user_id, created_at, expires_at
		FROM user_sessions
		WHERE session_token = $1
	`
	session, err := scanSession(s.querier(ctx).QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session by token: %w", err)
	}
	return session, nil
}

// Delete removes the session for the given token. Reports
// sentinel.ErrNotFound when no row matched so callers can keep logout
// idempotent while still auditing real deletions.
func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	result, err := s.querier(ctx).ExecContext(ctx,
		`DELETE FROM user_sessions WHERE session_token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now. Exists
// for operational sweeps; nothing in the request path depends on it.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.querier(ctx).ExecContext(ctx,
		`DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired rows affected: %w", err)
	}
	return int(rows), nil
}

type sessionRow interface {
	Scan(dest ...any) error
}

func scanSession(row sessionRow) (*models.Session, error) {
	var session models.Session
	var rawID, rawUserID string
	if err := row.Scan(&rawID, &session.Token, &rawUserID, &session.CreatedAt, &session.ExpiresAt); err != nil {
		return nil, err
	}
	sessionID, err := id.ParseSessionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", rawID, err)
	}
	userID, err := id.ParseUserID(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("parse session user id %q: %w", rawUserID, err)
	}
	session.ID = sessionID
	session.UserID = userID
	return &session, nil
}
