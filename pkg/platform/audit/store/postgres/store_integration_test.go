//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "libris/pkg/domain"
	audit "libris/pkg/platform/audit"
	auditpg "libris/pkg/platform/audit/store/postgres"
	"libris/pkg/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = auditpg.New(s.postgres.DB)
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_log"))
}

func (s *StoreSuite) TestAppendFullEvent() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	recordID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	err := s.store.Append(ctx, audit.Event{
		Timestamp: now,
		UserID:    userID,
		Action:    audit.ActionBorrowBook,
		Subject:   "borrowing_records",
		RecordID:  recordID,
		Detail:    map[string]string{"book_id": "abc", "loan_days": "14"},
	})
	s.Require().NoError(err)

	var (
		gotUser   string
		gotAction string
		gotTable  string
		gotRecord string
		gotDetail []byte
		gotAt     time.Time
	)
	row := s.postgres.DB.QueryRowContext(ctx,
		`SELECT user_id, action, table_name, record_id, detail, created_at FROM audit_log`)
	s.Require().NoError(row.Scan(&gotUser, &gotAction, &gotTable, &gotRecord, &gotDetail, &gotAt))

	s.Equal(userID.String(), gotUser)
	s.Equal("BORROW_BOOK", gotAction)
	s.Equal("borrowing_records", gotTable)
	s.Equal(recordID, gotRecord)
	s.WithinDuration(now, gotAt, time.Second)

	var detail map[string]string
	s.Require().NoError(json.Unmarshal(gotDetail, &detail))
	s.Equal("abc", detail["book_id"])
	s.Equal("14", detail["loan_days"])
}

func (s *StoreSuite) TestAppendStoresNullsForAbsentFields() {
	ctx := context.Background()

	err := s.store.Append(ctx, audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    audit.ActionLoginUserNotFound,
	})
	s.Require().NoError(err)

	var (
		gotUser   sql.NullString
		gotTable  sql.NullString
		gotRecord sql.NullString
		gotDetail []byte
	)
	row := s.postgres.DB.QueryRowContext(ctx,
		`SELECT user_id, table_name, record_id, detail FROM audit_log`)
	s.Require().NoError(row.Scan(&gotUser, &gotTable, &gotRecord, &gotDetail))

	s.False(gotUser.Valid)
	s.False(gotTable.Valid)
	s.False(gotRecord.Valid)
	s.Nil(gotDetail)
}

func (s *StoreSuite) TestAppendPreservesOrderAcrossEvents() {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)
	for i, action := range []audit.Action{audit.ActionLoginSuccess, audit.ActionBorrowBook, audit.ActionReturnBook} {
		err := s.store.Append(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    id.UserID(uuid.New()),
			Action:    action,
		})
		s.Require().NoError(err)
	}

	rows, err := s.postgres.DB.QueryContext(ctx,
		`SELECT action FROM audit_log ORDER BY created_at`)
	s.Require().NoError(err)
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var a string
		s.Require().NoError(rows.Scan(&a))
		actions = append(actions, a)
	}
	s.Require().NoError(rows.Err())
	s.Equal([]string{"LOGIN_SUCCESS", "BORROW_BOOK", "RETURN_BOOK"}, actions)
}
