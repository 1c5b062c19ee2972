// Package handler wires the catalog and borrowing endpoints to the lending
// service. Reads are public; every mutation and the history listing sit
// behind the session gate.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libris/internal/catalog/models"
	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/httputil"
	"libris/pkg/requestcontext"
)

// Service is the lending surface the handler depends on.
type Service interface {
	GetItem(ctx context.Context, itemID id.ItemID) (*models.Item, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	SearchItems(ctx context.Context, q, category string) ([]*models.Item, error)
	Borrow(ctx context.Context, userID id.UserID, itemID id.ItemID, loanDays int) (*models.BorrowingRecord, error)
	Return(ctx context.Context, userID id.UserID, borrowingID id.BorrowingID) (*models.BorrowingRecord, error)
	History(ctx context.Context, userID id.UserID) ([]*models.HistoryEntry, error)
}

// Handler is the thin HTTP layer over the lending service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public catalog read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/books", h.HandleList)
	r.Get("/api/books/search", h.HandleSearch)
	r.Get("/api/books/{bookID}", h.HandleGet)
}

// RegisterProtected mounts endpoints that require a valid session.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/api/books/borrow", h.HandleBorrow)
	r.Post("/api/books/return", h.HandleReturn)
	r.Get("/api/books/history", h.HandleHistory)
}

// HandleList handles GET /api/books.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"books": items})
}

// HandleSearch handles GET /api/books/search?q=...&category=...
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	items, err := h.service.SearchItems(r.Context(), q, category)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"books": items})
}

// HandleGet handles GET /api/books/{bookID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	itemID, err := id.ParseItemID(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid book id"))
		return
	}

	item, err := h.service.GetItem(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

type borrowRequest struct {
	BookID   string `json:"book_id"`
	LoanDays int    `json:"loan_days"`
}

type borrowResponse struct {
	BorrowingID string    `json:"borrowing_id"`
	BookID      string    `json:"book_id"`
	BorrowedAt  time.Time `json:"borrowed_at"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
}

// HandleBorrow handles POST /api/books/borrow.
func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	itemID, err := id.ParseItemID(req.BookID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid book id"))
		return
	}

	record, err := h.service.Borrow(ctx, ident.UserID, itemID, req.LoanDays)
	if err != nil {
		h.logger.InfoContext(ctx, "borrow rejected",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", ident.UserID,
			"book_id", req.BookID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, borrowResponse{
		BorrowingID: record.ID.String(),
		BookID:      record.ItemID.String(),
		BorrowedAt:  record.BorrowedAt,
		DueDate:     record.DueDate,
		Status:      string(record.Status),
	})
}

type returnRequest struct {
	BorrowingID string `json:"borrowing_id"`
}

type returnResponse struct {
	BorrowingID string     `json:"borrowing_id"`
	BookID      string     `json:"book_id"`
	ReturnedAt  *time.Time `json:"returned_at"`
	Status      string     `json:"status"`
}

// HandleReturn handles POST /api/books/return.
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	borrowingID, err := id.ParseBorrowingID(req.BorrowingID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid borrowing id"))
		return
	}

	record, err := h.service.Return(ctx, ident.UserID, borrowingID)
	if err != nil {
		h.logger.InfoContext(ctx, "return rejected",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", ident.UserID,
			"borrowing_id", req.BorrowingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, returnResponse{
		BorrowingID: record.ID.String(),
		BookID:      record.ItemID.String(),
		ReturnedAt:  record.ReturnedAt,
		Status:      string(record.Status),
	})
}

// HandleHistory handles GET /api/books/history for the authenticated caller.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	entries, err := h.service.History(ctx, ident.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": entries})
}
