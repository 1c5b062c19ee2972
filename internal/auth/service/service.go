// Package service implements the authenticator: credential verification,
// session lifecycle, and session validation. It is the single admission gate
// for every mutating catalog operation.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,SessionStore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authmetrics "libris/internal/auth/metrics"
	"libris/internal/auth/models"
	id "libris/pkg/domain"
	"libris/pkg/platform/audit"
	"libris/pkg/requestcontext"
)

// DefaultSessionTTL is the session lifetime from issuance. Sessions are not
// renewed by activity.
const DefaultSessionTTL = 24 * time.Hour

// UserStore reads and writes credential-store records.
type UserStore interface {
	FindActiveByUsername(ctx context.Context, username string) (*models.User, error)
	FindActiveByID(ctx context.Context, userID id.UserID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// SessionStore owns the session lifecycle.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Service orchestrates login, logout, registration, and session validation.
type Service struct {
	users      UserStore
	sessions   SessionStore
	logger     *slog.Logger
	emitter    *audit.Emitter
	metrics    *authmetrics.Metrics
	sessionTTL time.Duration
	generate   func() (string, error)
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *authmetrics.Metrics
	sessionTTL     time.Duration
	generate       func() (string, error)
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = p }
}

func WithMetrics(m *authmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) { c.sessionTTL = ttl }
}

// WithTokenGenerator overrides token generation; test hook.
func WithTokenGenerator(fn func() (string, error)) Option {
	return func(c *serviceConfig) { c.generate = fn }
}

func NewService(users UserStore, sessions SessionStore, opts ...Option) *Service {
	cfg := &serviceConfig{sessionTTL: DefaultSessionTTL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		logger:     cfg.logger,
		emitter:    audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:    cfg.metrics,
		sessionTTL: cfg.sessionTTL,
		generate:   cfg.generate,
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

func (s *Service) newSession(ctx context.Context, userID id.UserID, token string) *models.Session {
	now := requestcontext.Now(ctx)
	return &models.Session{
		ID:        id.SessionID(uuid.New()),
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
}
