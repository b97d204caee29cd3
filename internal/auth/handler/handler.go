package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unionhub/internal/auth/models"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the login endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/api/admin/login", h.handleLogin)
}

// RegisterAdmin mounts endpoints that need an authenticated admin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/me", h.handleMe)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(r.Context(), "admin login failed",
				"request_id", requestcontext.RequestID(r.Context()),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"username": requestcontext.AdminUsername(r.Context()),
	})
}
