package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"unionhub/internal/member/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

// Service defines the member operations the HTTP layer needs.
type Service interface {
	Verify(ctx context.Context, req models.VerifyRequest) (string, error)
	GetByToken(ctx context.Context, token string) (*models.Member, error)
	SubmitFinancialForm(ctx context.Context, token string, req models.FinancialFormRequest) (*models.FinancialForm, error)
	Get(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	List(ctx context.Context, f models.Filter) ([]*models.Member, error)
	ListForms(ctx context.Context, memberID id.MemberID) ([]*models.FinancialForm, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the member-token endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/api/members/verify", h.handleVerify)
	r.Get("/api/members/{token}", h.handleGetByToken)
	r.Post("/api/members/{token}/financial-form", h.handleSubmitFinancialForm)
}

// RegisterAdmin mounts the admin endpoints; r must already require auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/members", h.handleList)
	r.Get("/api/admin/members/{memberID}", h.handleGet)
	r.Get("/api/admin/members/{memberID}/financial-forms", h.handleListForms)
}

type verifyResponse struct {
	Token string `json:"token"`
}

type memberResponse struct {
	*models.Member
	Token string `json:"token"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.service.Verify(r.Context(), req)
	if err != nil {
		h.writeError(r.Context(), w, "member verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{Token: token})
}

func (h *Handler) handleGetByToken(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(r.Context(), w, "member lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memberResponse{Member: m, Token: m.Token})
}

func (h *Handler) handleSubmitFinancialForm(w http.ResponseWriter, r *http.Request) {
	var req models.FinancialFormRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	form, err := h.service.SubmitFinancialForm(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		h.writeError(r.Context(), w, "financial form submission failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, form)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var source id.Source
	if raw := q.Get("source"); raw != "" {
		parsed, err := id.ParseSource(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		source = parsed
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	members, err := h.service.List(r.Context(), models.Filter{
		Region:     q.Get("region"),
		DataSource: source,
		Search:     q.Get("q"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.writeError(r.Context(), w, "member list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.service.Get(r.Context(), memberID)
	if err != nil {
		h.writeError(r.Context(), w, "member lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleListForms(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	forms, err := h.service.ListForms(r.Context(), memberID)
	if err != nil {
		h.writeError(r.Context(), w, "financial form list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"financial_forms": forms})
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
