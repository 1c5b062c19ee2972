package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libris/internal/catalog/models"
	"libris/pkg/platform/audit"
	"libris/pkg/platform/sentinel"
	"libris/pkg/requestcontext"

	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// Borrow claims one copy of an item for the caller. The availability
// decrement and the ledger insert commit together or not at all, and the
// conditional decrement serializes concurrent claims on the last copy:
// exactly one caller wins, the rest see an unavailable error.
//
// A zero loanDays selects the default loan period; anything else outside
// [MinLoanDays, MaxLoanDays] is rejected before any state is touched.
func (s *Service) Borrow(ctx context.Context, userID id.UserID, itemID id.ItemID, loanDays int) (*models.BorrowingRecord, error) {
	start := time.Now()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "book id is required")
	}
	if loanDays == 0 {
		loanDays = DefaultLoanDays
	}
	if loanDays < MinLoanDays || loanDays > MaxLoanDays {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("loan period must be between %d and %d days", MinLoanDays, MaxLoanDays))
	}

	now := requestcontext.Now(ctx)
	record := &models.BorrowingRecord{
		ID:         id.BorrowingID(uuid.New()),
		UserID:     userID,
		ItemID:     itemID,
		BorrowedAt: now,
		DueDate:    now.AddDate(0, 0, loanDays),
		Status:     models.StatusBorrowed,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.items.DecrementAvailable(ctx, itemID); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "book not found")
			case errors.Is(err, sentinel.ErrUnavailable):
				return dErrors.New(dErrors.CodeUnavailable, "no copies available")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim copy")
			}
		}
		if err := s.ledger.Create(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create borrowing record")
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveBorrow(outcomeFor(err), start)
		return nil, err
	}

	s.logAudit(ctx, audit.ActionBorrowBook, userID, "borrowing_records", record.ID.String(),
		map[string]string{"book_id": itemID.String(), "due_date": record.DueDate.Format(time.RFC3339)})
	s.metrics.ObserveBorrow("success", start)

	return record, nil
}

func outcomeFor(err error) string {
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return "not_found"
	case dErrors.HasCode(err, dErrors.CodeUnavailable):
		return "unavailable"
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
