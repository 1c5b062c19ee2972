package service

import (
	"context"
	"errors"

	"libris/internal/catalog/models"
	"libris/pkg/platform/audit"
	"libris/pkg/platform/sentinel"
	"libris/pkg/requestcontext"

	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// Return closes an open borrowing record and releases its copy. The status
// transition and the availability increment commit together; the
// conditional transition makes a concurrent double return lose cleanly
// instead of inflating the counter. A record that is absent and a record
// that is already closed are reported identically as not found.
//
// An increment that would push availability past the total is reported as
// an invariant violation and never clamped: it means the ledger and the
// counter already disagree, which must surface, not be papered over.
func (s *Service) Return(ctx context.Context, userID id.UserID, borrowingID id.BorrowingID) (*models.BorrowingRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if borrowingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "borrowing id is required")
	}

	var record *models.BorrowingRecord
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		// Ownership is settled before any write so a rejected return
		// leaves no state to undo.
		if s.requireOwnReturn {
			existing, err := s.ledger.FindByID(ctx, borrowingID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "borrowing record not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load borrowing record")
			}
			if existing.UserID != userID {
				return dErrors.New(dErrors.CodeForbidden, "borrowing record belongs to another user")
			}
		}
		updated, err := s.ledger.MarkReturned(ctx, borrowingID, requestcontext.Now(ctx))
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "borrowing record not found")
			case errors.Is(err, sentinel.ErrAlreadyReturned):
				return dErrors.New(dErrors.CodeNotFound, "borrowing record is not open")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close borrowing record")
			}
		}
		if err := s.items.IncrementAvailable(ctx, updated.ItemID); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrInvalidState):
				return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "available copies would exceed total")
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.Wrap(err, dErrors.CodeInternal, "ledger references missing book")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release copy")
			}
		}
		record = updated
		return nil
	})
	if err != nil {
		s.metrics.ObserveReturn(outcomeFor(err))
		return nil, err
	}

	s.logAudit(ctx, audit.ActionReturnBook, userID, "borrowing_records", record.ID.String(),
		map[string]string{"book_id": record.ItemID.String()})
	s.metrics.ObserveReturn("success")

	return record, nil
}

// History returns the caller's complete borrowing history, open and closed
// loans alike, newest first.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]*models.HistoryEntry, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list borrowing history")
	}
	return entries, nil
}
