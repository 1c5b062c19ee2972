// Package domain defines the typed identifiers shared across services.
// Distinct types for each entity make cross-entity ID mixups a compile
// error instead of a data bug.
package domain

import (
	"github.com/google/uuid"

	dErrors "libris/pkg/domain-errors"
)

type (
	// UserID identifies a library member or staff account.
	UserID uuid.UUID

	// SessionID identifies an authentication session row, not its token.
	SessionID uuid.UUID

	// ItemID identifies a catalog book.
	ItemID uuid.UUID

	// BorrowingID identifies one row in the borrowing ledger.
	BorrowingID uuid.UUID
)

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }
func (id ItemID) String() string      { return uuid.UUID(id).String() }
func (id BorrowingID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id BorrowingID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the trust-boundary rule for identifiers: valid RFC 4122
// text and never the nil UUID.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw, "session id")
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(parsed), nil
}

func ParseItemID(raw string) (ItemID, error) {
	parsed, err := parseUUID(raw, "item id")
	if err != nil {
		return ItemID{}, err
	}
	return ItemID(parsed), nil
}

func ParseBorrowingID(raw string) (BorrowingID, error) {
	parsed, err := parseUUID(raw, "borrowing id")
	if err != nil {
		return BorrowingID{}, err
	}
	return BorrowingID(parsed), nil
}
