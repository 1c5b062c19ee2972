package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrExpired: session has passed its expiry
// - ErrAlreadyReturned: borrowing record is already in its terminal state
// - ErrUnavailable: item has no available copies to lend
// - ErrInvalidState: entity in wrong state for requested operation
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrExpired         = errors.New("expired")
	ErrAlreadyReturned = errors.New("already returned")
	ErrUnavailable     = errors.New("unavailable")
	ErrInvalidState    = errors.New("invalid state")
)
