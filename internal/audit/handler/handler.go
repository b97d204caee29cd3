package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the audit trail listing; r must already require auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		Category: audit.EventCategory(q.Get("category")),
		Action:   q.Get("action"),
		Subject:  q.Get("subject"),
		Actor:    q.Get("actor"),
	}
	switch f.Category {
	case "", audit.CategoryCompliance, audit.CategorySecurity, audit.CategoryOperations:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "category must be compliance, security or operations"))
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		f.Limit = limit
	}

	events, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit list failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
