// Package audit defines the append-only event record emitted by the
// authenticator and the borrowing engine, plus the publisher/store contracts
// that fan events out. Nothing in the core ever reads these events back.
package audit

import (
	"context"
	"log/slog"
	"time"

	id "libris/pkg/domain"
)

// Action tags an audit event with what happened.
type Action string

const (
	ActionLoginSuccess        Action = "LOGIN_SUCCESS"
	ActionLoginUserNotFound   Action = "LOGIN_FAILED_USER_NOT_FOUND"
	ActionLoginInvalidPass    Action = "LOGIN_FAILED_INVALID_PASSWORD"
	ActionLogout              Action = "LOGOUT"
	ActionRegister            Action = "REGISTER"
	ActionBorrowBook          Action = "BORROW_BOOK"
	ActionReturnBook          Action = "RETURN_BOOK"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// UserID stays nil for pre-auth failures (e.g. login against an unknown
// username). Subject names the table the event refers to, RecordID the row.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	Action    Action
	Subject   string
	RecordID  string
	Detail    map[string]string
}

// Store persists audit events. Append-only; no read path in the core.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher accepts audit events for delivery to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Emitter wraps a Publisher with the fire-and-forget policy: a publisher
// failure is logged and swallowed so it can never change the outcome of the
// primary operation. A nil publisher disables auditing entirely.
type Emitter struct {
	logger    *slog.Logger
	publisher Publisher
}

func NewEmitter(logger *slog.Logger, publisher Publisher) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger, publisher: publisher}
}

// Emit publishes the event best-effort. Timestamp defaults to now when the
// caller left it zero.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := e.publisher.Emit(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", string(event.Action),
		)
	}
}
