package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"unionhub/internal/auth/models"
	"unionhub/internal/auth/service"
	"unionhub/internal/auth/store"
	"unionhub/internal/auth/token"
	"unionhub/internal/platform/middleware"
)

func TestLoginThenAccessAdminRoute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := token.NewJWTService("test-key", "unionhub", time.Hour)
	svc := service.New(store.NewInMemory(), tokens, service.WithBcryptCost(bcrypt.MinCost))
	_, err := svc.CreateAdmin(context.Background(), models.CreateAdminRequest{Username: "organiser", Password: "correct horse battery"})
	require.NoError(t, err)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, logger))
		h.RegisterAdmin(r)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"username":"organiser","password":"wrong password!"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"username":"organiser","password":"correct horse battery"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.LoginResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"organiser"}`, rec.Body.String())
}
