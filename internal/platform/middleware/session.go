// Package middleware holds the session admission gate for protected routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/httputil"
	"libris/pkg/requestcontext"
)

// SessionCookie is the cookie carrying the opaque session token for
// browser clients. API clients send the same token as a bearer credential.
const SessionCookie = "session_token"

// SessionValidator resolves an opaque token to an authenticated identity.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (requestcontext.AuthIdentity, bool, error)
}

// TokenFromRequest extracts the session token from the Authorization
// header, falling back to the session cookie. Empty means unauthenticated.
func TokenFromRequest(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireSession rejects requests without a valid session and attaches the
// resolved identity to the context for downstream handlers. Invalid and
// expired tokens get the same response shape.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := TokenFromRequest(r)
			if token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			ident, ok, err := validator.ValidateSession(ctx, token)
			if err != nil {
				logger.ErrorContext(ctx, "session validation failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, ident)))
		})
	}
}
