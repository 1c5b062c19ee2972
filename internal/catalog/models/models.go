// Package models holds the catalog entities: items and borrowing records.
package models

import (
	"time"

	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// Item is a borrowable catalog entity. TotalCopies is fixed at creation;
// AvailableCopies moves only through paired borrow/return transitions and
// must stay within [0, TotalCopies].
type Item struct {
	ID              id.ItemID `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Category        string    `json:"category,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

// BorrowingStatus is the life-cycle state of a borrowing record.
type BorrowingStatus string

const (
	// StatusBorrowed marks an open loan.
	StatusBorrowed BorrowingStatus = "borrowed"
	// StatusReturned is terminal; there is no transition back.
	StatusReturned BorrowingStatus = "returned"
)

// BorrowingRecord is one ledger entry for one loan of one item to one user.
// Created by a successful borrow, mutated exactly once to returned, never
// deleted.
type BorrowingRecord struct {
	ID         id.BorrowingID  `json:"id"`
	UserID     id.UserID       `json:"user_id"`
	ItemID     id.ItemID       `json:"item_id"`
	BorrowedAt time.Time       `json:"borrowed_at"`
	DueDate    time.Time       `json:"due_date"`
	ReturnedAt *time.Time      `json:"returned_at,omitempty"`
	Status     BorrowingStatus `json:"status"`
}

// CanReturn reports whether the record is still open.
func (r *BorrowingRecord) CanReturn() error {
	if r.Status != StatusBorrowed {
		return dErrors.New(dErrors.CodeInvariantViolation, "borrowing record is not open")
	}
	return nil
}

// HistoryEntry is a ledger row joined with its item metadata for the
// caller-facing history listing.
type HistoryEntry struct {
	BorrowingRecord
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}
