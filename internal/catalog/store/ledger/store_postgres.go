// Package ledger persists borrowing records. Rows are created by borrows,
// transition exactly once to returned, and are never deleted.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
	txcontext "libris/pkg/platform/tx"
)

// PostgresStore persists borrowing records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `id, user_id, book_id, borrowed_at, due_date, returned_at, status`

func (s *PostgresStore) Create(ctx context.Context, record *models.BorrowingRecord) error {
	query := `
		INSERT INTO borrowing_records (id, user_id, book_id, borrowed_at, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		record.ID.String(),
		record.UserID.String(),
		record.ItemID.String(),
		record.BorrowedAt,
		record.DueDate,
		string(record.Status),
	)
	if err != nil {
		return fmt.Errorf("create borrowing record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, borrowingID id.BorrowingID) (*models.BorrowingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM borrowing_records WHERE id = $1`
	record, err := scanRecord(s.querier(ctx).QueryRowContext(ctx, query, borrowingID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find borrowing record: %w", err)
	}
	return record, nil
}

// MarkReturned atomically transitions an open record to returned. The
// status guard in the WHERE clause serializes concurrent returns of the
// same record: exactly one caller observes the transition, later callers
// get ErrAlreadyReturned. A missing row is ErrNotFound.
func (s *PostgresStore) MarkReturned(ctx context.Context, borrowingID id.BorrowingID, now time.Time) (*models.BorrowingRecord, error) {
	query := `
		UPDATE borrowing_records
		SET status = 'returned', returned_at = $2
		WHERE id = $1 AND status = 'borrowed'
		RETURNING ` + recordColumns + `
	`
	record, err := scanRecord(s.querier(ctx).QueryRowContext(ctx, query, borrowingID.String(), now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := s.FindByID(ctx, borrowingID); findErr != nil {
				return nil, findErr
			}
			return nil, sentinel.ErrAlreadyReturned
		}
		return nil, fmt.Errorf("mark borrowing record returned: %w", err)
	}
	return record, nil
}

// ListByUser returns the caller's full borrowing history, newest first,
// joined with item metadata.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.HistoryEntry, error) {
	query := `
		SELECT br.id, br.user_id, br.book_id, br.borrowed_at, br.due_date, br.returned_at, br.status,
		       b.title, b.author, b.isbn
		FROM borrowing_records br
		JOIN books b ON br.book_id = b.id
		WHERE br.user_id = $1
		ORDER BY br.borrowed_at DESC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list borrowing history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var rawID, rawUserID, rawItemID, status string
		var returnedAt sql.NullTime
		if err := rows.Scan(
			&rawID, &rawUserID, &rawItemID,
			&entry.BorrowedAt, &entry.DueDate, &returnedAt, &status,
			&entry.Title, &entry.Author, &entry.ISBN,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if err := fillIDs(&entry.BorrowingRecord, rawID, rawUserID, rawItemID); err != nil {
			return nil, err
		}
		entry.Status = models.BorrowingStatus(status)
		if returnedAt.Valid {
			entry.ReturnedAt = &returnedAt.Time
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

type recordRow interface {
	Scan(dest ...any) error
}

func scanRecord(row recordRow) (*models.BorrowingRecord, error) {
	var record models.BorrowingRecord
	var rawID, rawUserID, rawItemID, status string
	var returnedAt sql.NullTime
	if err := row.Scan(
		&rawID, &rawUserID, &rawItemID,
		&record.BorrowedAt, &record.DueDate, &returnedAt, &status,
	); err != nil {
		return nil, err
	}
	if err := fillIDs(&record, rawID, rawUserID, rawItemID); err != nil {
		return nil, err
	}
	record.Status = models.BorrowingStatus(status)
	if returnedAt.Valid {
		record.ReturnedAt = &returnedAt.Time
	}
	return &record, nil
}

func fillIDs(record *models.BorrowingRecord, rawID, rawUserID, rawItemID string) error {
	borrowingID, err := id.ParseBorrowingID(rawID)
	if err != nil {
		return fmt.Errorf("parse borrowing id %q: %w", rawID, err)
	}
	userID, err := id.ParseUserID(rawUserID)
	if err != nil {
		return fmt.Errorf("parse borrowing user id %q: %w", rawUserID, err)
	}
	itemID, err := id.ParseItemID(rawItemID)
	if err != nil {
		return fmt.Errorf("parse borrowing item id %q: %w", rawItemID, err)
	}
	record.ID = borrowingID
	record.UserID = userID
	record.ItemID = itemID
	return nil
}
