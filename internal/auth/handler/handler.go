// Package handler wires the authentication endpoints to the auth service.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libris/internal/auth/models"
	"libris/internal/auth/service"
	"libris/internal/platform/middleware"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/httputil"
	"libris/pkg/requestcontext"
)

// Service is the auth surface the handler depends on.
type Service interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionToken string) error
	Register(ctx context.Context, in service.RegisterInput) (*models.Profile, error)
	Profile(ctx context.Context, ident requestcontext.AuthIdentity) (*models.Profile, error)
}

// Handler is the thin HTTP layer over the auth service.
type Handler struct {
	service    Service
	logger     *slog.Logger
	sessionTTL time.Duration
}

func New(service Service, logger *slog.Logger, sessionTTL time.Duration) *Handler {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Handler{service: service, logger: logger, sessionTTL: sessionTTL}
}

// Register mounts the public auth endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/login", h.HandleLogin)
	r.Post("/api/auth/logout", h.HandleLogout)
	r.Post("/api/auth/register", h.HandleRegister)
}

// RegisterProtected mounts endpoints that require a valid session.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/api/user/profile", h.HandleProfile)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"session_token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleLogin handles POST /api/auth/login. On success the session token is
// returned in the body and mirrored in a cookie for browser clients.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.InfoContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token, h.sessionTTL)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:    result.Token,
		UserID:   result.User.UserID.String(),
		Username: result.User.Username,
		Role:     result.User.Role,
	})
}

// HandleLogout handles POST /api/auth/logout. Always succeeds: an unknown
// or missing token is a no-op.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Logout(ctx, middleware.TokenFromRequest(r)); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, "", -time.Hour)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
	EmployeeID string `json:"employee_id"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	profile, err := h.service.Register(ctx, service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		EmployeeID: req.EmployeeID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", profile.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, profile)
}

// HandleProfile handles GET /api/user/profile for the authenticated caller.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.service.Profile(ctx, ident)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
