package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"libris/internal/auth/handler/mocks"
	"libris/internal/auth/models"
	"libris/internal/auth/service"
	"libris/internal/platform/middleware"

	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/requestcontext"
)

func newRouter(t *testing.T) (*mocks.MockService, chi.Router) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, slog.Default(), time.Hour)

	router := chi.NewRouter()
	h.Register(router)
	router.Group(func(r chi.Router) {
		// The real session gate is exercised in its own test; handlers here
		// get the identity injected directly.
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := requestcontext.WithIdentity(r.Context(), requestcontext.AuthIdentity{
					UserID:   id.UserID(uuid.New()),
					Username: "alice",
					Role:     "user",
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		h.RegisterProtected(r)
	})
	return mockService, router
}

func TestHandleLoginSuccess(t *testing.T) {
	mockService, router := newRouter(t)
	userID := id.UserID(uuid.New())
	mockService.EXPECT().Login(gomock.Any(), "alice", "Password1").
		Return(&service.LoginResult{
			User:  requestcontext.AuthIdentity{UserID: userID, Username: "alice", Role: "user"},
			Token: "tok123",
		}, nil)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "Password1"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token    string `json:"session_token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tok123", resp.Token)
	assert.Equal(t, "alice", resp.Username)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, "tok123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	mockService, router := newRouter(t)
	mockService.EXPECT().Login(gomock.Any(), "alice", "wrong").
		Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials"))

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLoginBadBody(t *testing.T) {
	mockService, router := newRouter(t)
	mockService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogoutClearsCookie(t *testing.T) {
	mockService, router := newRouter(t)
	mockService.EXPECT().Logout(gomock.Any(), "tok123").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "tok123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHandleLogoutBearerToken(t *testing.T) {
	mockService, router := newRouter(t)
	mockService.EXPECT().Logout(gomock.Any(), "tok456").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok456")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleRegister(t *testing.T) {
	mockService, router := newRouter(t)
	profile := &models.Profile{ID: id.UserID(uuid.New()), Username: "bob"}
	mockService.EXPECT().Register(gomock.Any(), service.RegisterInput{
		Username:  "bob",
		Email:     "bob@example.com",
		Password:  "Password1",
		FirstName: "Bob",
		LastName:  "Jones",
	}).Return(profile, nil)

	body, _ := json.Marshal(map[string]string{
		"username":   "bob",
		"email":      "bob@example.com",
		"password":   "Password1",
		"first_name": "Bob",
		"last_name":  "Jones",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "bob", got.Username)
}

func TestHandleRegisterConflict(t *testing.T) {
	mockService, router := newRouter(t)
	mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "username already exists"))

	body, _ := json.Marshal(map[string]string{"username": "bob"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleProfile(t *testing.T) {
	mockService, router := newRouter(t)
	mockService.EXPECT().Profile(gomock.Any(), gomock.Any()).
		Return(&models.Profile{Username: "alice"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "alice", got.Username)
}
