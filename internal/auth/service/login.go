package service

import (
	"context"
	"errors"
	"time"

	"libris/internal/auth/password"
	"libris/internal/auth/token"
	"libris/pkg/platform/audit"
	"libris/pkg/platform/sentinel"
	"libris/pkg/requestcontext"

	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// LoginResult carries the sanitized identity and the fresh session token.
type LoginResult struct {
	User  requestcontext.AuthIdentity
	Token string
}

// Login verifies credentials and creates one session. Unknown-user and
// wrong-password failures return the same shape so usernames cannot be
// enumerated through the login endpoint.
func (s *Service) Login(ctx context.Context, username, pass string) (*LoginResult, error) {
	start := time.Now()

	if username == "" || pass == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username and password are required")
	}
	if len(username) < 3 || len(username) > 50 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username must be between 3 and 50 characters")
	}

	user, err := s.users.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logAudit(ctx, audit.ActionLoginUserNotFound, id.UserID{}, "users", "",
				map[string]string{"username": username})
			s.metrics.ObserveLogin("invalid_credentials", start)
			return nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	ok, err := password.Verify(pass, user.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		s.logAudit(ctx, audit.ActionLoginInvalidPass, user.ID, "users", user.ID.String(),
			map[string]string{"username": username})
		s.metrics.ObserveLogin("invalid_credentials", start)
		return nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
	}

	generate := s.generate
	if generate == nil {
		generate = token.Generate
	}
	sessionToken, err := generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session token")
	}

	session := s.newSession(ctx, user.ID, sessionToken)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.logAudit(ctx, audit.ActionLoginSuccess, user.ID, "user_sessions", session.ID.String(), nil)
	s.metrics.ObserveLogin("success", start)
	s.metrics.IncrementSessionsCreated()

	return &LoginResult{User: user.Identity(), Token: sessionToken}, nil
}

// Logout invalidates the session for the given token. Idempotent: an
// unknown or already-deleted token is a successful no-op, not an error.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	session, err := s.sessions.FindByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session")
	}

	if err := s.sessions.Delete(ctx, sessionToken); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Lost a race with a concurrent logout; outcome is the same.
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}

	s.logAudit(ctx, audit.ActionLogout, session.UserID, "user_sessions", session.ID.String(), nil)
	return nil
}

// ValidateSession resolves a token to an authenticated identity. It reports
// ok=false for an empty, unknown, or expired token and for an inactive
// owning user; none of those are errors. The error return is reserved for
// storage failures.
func (s *Service) ValidateSession(ctx context.Context, sessionToken string) (requestcontext.AuthIdentity, bool, error) {
	if sessionToken == "" {
		return requestcontext.AuthIdentity{}, false, nil
	}

	session, err := s.sessions.FindByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.AuthIdentity{}, false, nil
		}
		return requestcontext.AuthIdentity{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session")
	}

	if session.Expired(requestcontext.Now(ctx)) {
		// Lazy expiry: drop the stale row best-effort on discovery.
		if err := s.sessions.Delete(ctx, sessionToken); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to delete expired session", "error", err)
		}
		return requestcontext.AuthIdentity{}, false, nil
	}

	user, err := s.users.FindActiveByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.AuthIdentity{}, false, nil
		}
		return requestcontext.AuthIdentity{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session user")
	}

	return user.Identity(), true, nil
}
