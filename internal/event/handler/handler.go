package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unionhub/internal/event/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error)
	Get(ctx context.Context, eventID id.EventID) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	Update(ctx context.Context, eventID id.EventID, req models.UpdateEventRequest) (*models.Event, error)
	EffectiveConfig(ctx context.Context, eventID id.EventID) (map[string]string, error)
	ListTemplates(ctx context.Context) ([]*models.EventTemplate, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic exposes the landing configuration members see.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/api/events/{eventID}/config", h.handleConfig)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/events", h.handleList)
	r.Post("/api/admin/events", h.handleCreate)
	r.Get("/api/admin/events/{eventID}", h.handleGet)
	r.Patch("/api/admin/events/{eventID}", h.handleUpdate)
	r.Get("/api/admin/event-templates", h.handleListTemplates)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(r.Context(), w, "create event failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list events failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.Get(r.Context(), eventID)
	if err != nil {
		h.writeError(r.Context(), w, "get event failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.Update(r.Context(), eventID, req)
	if err != nil {
		h.writeError(r.Context(), w, "update event failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cfg, err := h.service.EffectiveConfig(r.Context(), eventID)
	if err != nil {
		h.writeError(r.Context(), w, "event config failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.service.ListTemplates(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list event templates failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"templates": tpls})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
