package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"unionhub/internal/notification/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

type Service interface {
	ListTemplates(ctx context.Context) ([]*models.Template, error)
	Template(ctx context.Context, code string) (*models.Template, error)
	UpdateTemplate(ctx context.Context, code string, req models.UpdateTemplateRequest) (*models.Template, error)
	Render(ctx context.Context, code string, vars map[string]string) (models.Channel, string, string, error)
	ListLogs(ctx context.Context, f models.LogFilter) ([]*models.Log, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts template and log endpoints; r must already require auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/api/admin/notifications", func(r chi.Router) {
		r.Get("/templates", h.handleListTemplates)
		r.Get("/templates/{code}", h.handleGetTemplate)
		r.Put("/templates/{code}", h.handleUpdateTemplate)
		r.Post("/templates/{code}/preview", h.handlePreview)
		r.Get("/logs", h.handleListLogs)
	})
}

type previewResponse struct {
	Channel models.Channel `json:"channel"`
	Subject string         `json:"subject,omitempty"`
	Body    string         `json:"body"`
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListTemplates(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "template list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"templates": templates, "count": len(templates)})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Template(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(r.Context(), w, "template lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTemplateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.UpdateTemplate(r.Context(), chi.URLParam(r, "code"), req)
	if err != nil {
		h.writeError(r.Context(), w, "template update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	vars := map[string]string{}
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &vars); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	channel, subject, body, err := h.service.Render(r.Context(), chi.URLParam(r, "code"), vars)
	if err != nil {
		h.writeError(r.Context(), w, "template preview failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, previewResponse{Channel: channel, Subject: subject, Body: body})
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.LogFilter{Type: q.Get("type")}
	if raw := q.Get("event_member_id"); raw != "" {
		emID, err := id.ParseEventMemberID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		f.EventMemberID = &emID
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		f.Limit = limit
	}
	logs, err := h.service.ListLogs(r.Context(), f)
	if err != nil {
		h.writeError(r.Context(), w, "notification log list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
