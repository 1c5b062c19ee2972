// Package postgres persists audit events in the audit_log table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	audit "libris/pkg/platform/audit"
	txcontext "libris/pkg/platform/tx"
)

// Store implements audit.Store against PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one audit_log row. Detail is stored as JSONB; a nil map
// stores NULL.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var userID any
	if !event.UserID.IsNil() {
		userID = uuid.UUID(event.UserID)
	}

	var recordID any
	if event.RecordID != "" {
		recordID = event.RecordID
	}
	var subject any
	if event.Subject != "" {
		subject = event.Subject
	}

	var detail any
	if len(event.Detail) > 0 {
		detailBytes, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = detailBytes
	}

	query := `
		INSERT INTO audit_log (id, user_id, action, table_name, record_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		userID,
		string(event.Action),
		subject,
		recordID,
		detail,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit_log entry: %w", err)
	}
	return nil
}
