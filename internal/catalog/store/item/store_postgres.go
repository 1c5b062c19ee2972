// Package item persists catalog items and owns every mutation of the
// available-copy counter.
package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
	txcontext "libris/pkg/platform/tx"
)

// PostgresStore persists items in PostgreSQL. The availability counter is
// only ever mutated through the conditional single-statement updates below;
// the row lock those statements take is what serializes concurrent borrows
// of the last copy.
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

const itemColumns = `id, title, author, isbn, category, total_copies, available_copies, created_at`

func (s *PostgresStore) FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM books WHERE id = $1`
	item, err := scanItem(s.querier(ctx).QueryRowContext(ctx, query, itemID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find item by id: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM books ORDER BY title`
	return s.queryItems(ctx, query)
}

// Search matches the query against title, author, and ISBN, optionally
// narrowed by category.
func (s *PostgresStore) Search(ctx context.Context, q, category string) ([]*models.Item, error) {
	pattern := "%" + q + "%"
	if category != "" {
		query := `
			SELECT ` + itemColumns + `
			FROM books
			WHERE (title ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1) AND category = $2
			ORDER BY title
		`
		return s.queryItems(ctx, query, pattern, category)
	}
	query := `
		SELECT ` + itemColumns + `
		FROM books
		WHERE title ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1
		ORDER BY title
	`
	return s.queryItems(ctx, query, pattern)
}

// Create inserts a new item with all copies available.
func (s *PostgresStore) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO books (id, title, author, isbn, category, total_copies, available_copies, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		item.ID.String(),
		item.Title,
		item.Author,
		item.ISBN,
		item.Category,
		item.TotalCopies,
		item.AvailableCopies,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// DecrementAvailable atomically takes one copy. The availability guard in
// the WHERE clause plus the row lock the UPDATE acquires guarantee that two
// concurrent borrows cannot both take the last copy. Zero rows affected
// means either the item does not exist or no copies remain; the follow-up
// existence probe distinguishes the two without racing (copies never come
// back within the enclosing transaction).
func (s *PostgresStore) DecrementAvailable(ctx context.Context, itemID id.ItemID) error {
	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = $1 AND available_copies > 0
	`, itemID.String())
	if err != nil {
		return fmt.Errorf("decrement available copies: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(ctx, itemID); err != nil {
			return err
		}
		return sentinel.ErrUnavailable
	}
	return nil
}

// IncrementAvailable atomically gives one copy back. The guard refuses to
// push available_copies past total_copies: zero rows affected on an
// existing item means the counters were already inconsistent, which is an
// invariant breach the caller must surface, never clamp.
func (s *PostgresStore) IncrementAvailable(ctx context.Context, itemID id.ItemID) error {
	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE id = $1 AND available_copies < total_copies
	`, itemID.String())
	if err != nil {
		return fmt.Errorf("increment available copies: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(ctx, itemID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) queryItems(ctx context.Context, query string, args ...any) ([]*models.Item, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type itemRow interface {
	Scan(dest ...any) error
}

func scanItem(row itemRow) (*models.Item, error) {
	var item models.Item
	var rawID string
	var category sql.NullString
	if err := row.Scan(
		&rawID,
		&item.Title,
		&item.Author,
		&item.ISBN,
		&category,
		&item.TotalCopies,
		&item.AvailableCopies,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := id.ParseItemID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse item id %q: %w", rawID, err)
	}
	item.ID = parsed
	item.Category = category.String
	return &item, nil
}
