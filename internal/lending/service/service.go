// Package service implements the borrowing engine: availability-guarded
// borrows, single-transition returns, and the read paths over the catalog
// and the ledger. Every mutation runs as one atomic unit so the copy
// counter and the ledger can never drift apart.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ItemStore,LedgerStore

import (
	"context"
	"log/slog"
	"time"

	"libris/internal/catalog/models"
	lendingmetrics "libris/internal/lending/metrics"
	id "libris/pkg/domain"
	"libris/pkg/platform/audit"
	"libris/pkg/platform/tx"
	"libris/pkg/requestcontext"
)

// Loan period bounds in days. A zero request falls back to the default.
const (
	DefaultLoanDays = 14
	MinLoanDays     = 1
	MaxLoanDays     = 90
)

// ItemStore reads catalog items and moves their availability counter.
// DecrementAvailable and IncrementAvailable are conditional: they fail
// rather than push the counter outside [0, TotalCopies].
type ItemStore interface {
	FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error)
	List(ctx context.Context) ([]*models.Item, error)
	Search(ctx context.Context, q, category string) ([]*models.Item, error)
	Create(ctx context.Context, item *models.Item) error
	DecrementAvailable(ctx context.Context, itemID id.ItemID) error
	IncrementAvailable(ctx context.Context, itemID id.ItemID) error
}

// LedgerStore owns borrowing records. MarkReturned is conditional on the
// record still being open.
type LedgerStore interface {
	Create(ctx context.Context, record *models.BorrowingRecord) error
	FindByID(ctx context.Context, borrowingID id.BorrowingID) (*models.BorrowingRecord, error)
	MarkReturned(ctx context.Context, borrowingID id.BorrowingID, now time.Time) (*models.BorrowingRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.HistoryEntry, error)
}

// Service orchestrates borrow, return, history, and the catalog read paths.
type Service struct {
	items            ItemStore
	ledger           LedgerStore
	runner           tx.Runner
	logger           *slog.Logger
	emitter          *audit.Emitter
	metrics          *lendingmetrics.Metrics
	requireOwnReturn bool
}

type serviceConfig struct {
	logger           *slog.Logger
	auditPublisher   audit.Publisher
	metrics          *lendingmetrics.Metrics
	requireOwnReturn bool
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = p }
}

func WithMetrics(m *lendingmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithRequireOwnReturn restricts returns to the borrower who opened the
// record. Off by default: any authenticated user may hand a book back.
func WithRequireOwnReturn(require bool) Option {
	return func(c *serviceConfig) { c.requireOwnReturn = require }
}

func NewService(items ItemStore, ledger LedgerStore, runner tx.Runner, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		items:            items,
		ledger:           ledger,
		runner:           runner,
		logger:           cfg.logger,
		emitter:          audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:          cfg.metrics,
		requireOwnReturn: cfg.requireOwnReturn,
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, userID id.UserID, subject, recordID string, detail map[string]string) {
	s.emitter.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Action:    action,
		Subject:   subject,
		RecordID:  recordID,
		Detail:    detail,
	})
}
