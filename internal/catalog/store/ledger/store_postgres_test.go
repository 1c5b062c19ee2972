package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func recordRows(borrowingID id.BorrowingID, status string, returnedAt any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "book_id", "borrowed_at", "due_date", "returned_at", "status",
	}).AddRow(borrowingID.String(), uuid.New().String(), uuid.New().String(), now, now.AddDate(0, 0, 14), returnedAt, status)
}

func TestMarkReturnedTransitions(t *testing.T) {
	store, mock := newMockStore(t)
	borrowingID := id.BorrowingID(uuid.New())
	now := time.Now()

	mock.ExpectQuery("UPDATE borrowing_records").
		WithArgs(borrowingID.String(), now).
		WillReturnRows(recordRows(borrowingID, "returned", now))

	record, err := store.MarkReturned(context.Background(), borrowingID, now)
	if err != nil {
		t.Fatalf("MarkReturned() error: %v", err)
	}
	if record.Status != models.StatusReturned {
		t.Fatalf("expected returned status, got %q", record.Status)
	}
	if record.ReturnedAt == nil {
		t.Fatal("expected returned_at to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestMarkReturnedAlreadyClosed(t *testing.T) {
	store, mock := newMockStore(t)
	borrowingID := id.BorrowingID(uuid.New())
	now := time.Now()

	// Conditional update matches nothing, probe finds the closed record.
	mock.ExpectQuery("UPDATE borrowing_records").
		WithArgs(borrowingID.String(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT (.+) FROM borrowing_records WHERE id").
		WithArgs(borrowingID.String()).
		WillReturnRows(recordRows(borrowingID, "returned", now))

	_, err := store.MarkReturned(context.Background(), borrowingID, now)
	if !errors.Is(err, sentinel.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
}

func TestMarkReturnedMissingRecord(t *testing.T) {
	store, mock := newMockStore(t)
	borrowingID := id.BorrowingID(uuid.New())
	now := time.Now()

	mock.ExpectQuery("UPDATE borrowing_records").
		WithArgs(borrowingID.String(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT (.+) FROM borrowing_records WHERE id").
		WithArgs(borrowingID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.MarkReturned(context.Background(), borrowingID, now)
	if !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByUserJoinsItemMetadata(t *testing.T) {
	store, mock := newMockStore(t)
	userID := id.UserID(uuid.New())
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "book_id", "borrowed_at", "due_date", "returned_at", "status",
		"title", "author", "isbn",
	}).
		AddRow(uuid.New().String(), userID.String(), uuid.New().String(), now, now.AddDate(0, 0, 14), nil, "borrowed",
			"Clean Code", "Martin", "978-0132350884").
		AddRow(uuid.New().String(), userID.String(), uuid.New().String(), now.Add(-time.Hour), now.AddDate(0, 0, 13), now, "returned",
			"Anna Karenina", "Tolstoy", "978-0143035008")
	mock.ExpectQuery("SELECT (.+) FROM borrowing_records br").
		WithArgs(userID.String()).
		WillReturnRows(rows)

	entries, err := store.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByUser() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Clean Code" {
		t.Fatalf("expected joined title, got %q", entries[0].Title)
	}
	if entries[1].ReturnedAt == nil {
		t.Fatal("expected returned_at on closed loan")
	}
}

func TestCreateInsertsOpenRecord(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	record := &models.BorrowingRecord{
		ID:         id.BorrowingID(uuid.New()),
		UserID:     id.UserID(uuid.New()),
		ItemID:     id.ItemID(uuid.New()),
		BorrowedAt: now,
		DueDate:    now.AddDate(0, 0, 14),
		Status:     models.StatusBorrowed,
	}

	mock.ExpectExec("INSERT INTO borrowing_records").
		WithArgs(record.ID.String(), record.UserID.String(), record.ItemID.String(), record.BorrowedAt, record.DueDate, "borrowed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
