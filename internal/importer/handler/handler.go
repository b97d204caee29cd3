package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"unionhub/internal/importer/models"
	"unionhub/internal/importer/service"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

const maxUpload = 32 << 20

type Service interface {
	ImportCSV(ctx context.Context, r io.Reader, opts service.Options) (*models.Result, error)
	ImportInformer(ctx context.Context, tokenOrURL string, opts service.Options) (*models.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the import endpoints; r must already require auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/api/admin/import/csv", h.handleCSV)
	r.Post("/api/admin/import/informer", h.handleInformer)
}

type informerRequest struct {
	Token     string `json:"token"`
	Source    string `json:"source"`
	EventID   string `json:"event_id"`
	Emergency bool   `json:"emergency"`
}

// handleCSV accepts either a multipart upload in the "file" field or the raw
// CSV as the request body.
func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	emergency := false
	if raw := q.Get("emergency"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "emergency must be true or false"))
			return
		}
		emergency = v
	}
	opts, err := options(q.Get("source"), q.Get("event_id"), emergency)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	body := io.Reader(r.Body)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "multipart upload needs a file field"))
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.service.ImportCSV(r.Context(), body, opts)
	if err != nil {
		h.writeError(r.Context(), w, "csv import failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleInformer(w http.ResponseWriter, r *http.Request) {
	var req informerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "token is required"))
		return
	}
	opts, err := options(req.Source, req.EventID, req.Emergency)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.ImportInformer(r.Context(), req.Token, opts)
	if err != nil {
		h.writeError(r.Context(), w, "informer import failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func options(source, eventID string, emergency bool) (service.Options, error) {
	src, err := id.ParseSource(source)
	if err != nil {
		return service.Options{}, err
	}
	opts := service.Options{Source: src, Emergency: emergency}
	if eventID != "" {
		eid, err := id.ParseEventID(eventID)
		if err != nil {
			return service.Options{}, err
		}
		opts.EventID = &eid
	}
	return opts, nil
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
