package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"unionhub/internal/bmm/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/httputil"
	"unionhub/pkg/requestcontext"
)

// Service defines the BMM workflow operations the HTTP layer needs.
type Service interface {
	Register(ctx context.Context, eventID id.EventID, memberID id.MemberID, region string) (*models.EventMember, error)
	Get(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error)
	List(ctx context.Context, eventID id.EventID, f models.Filter) ([]*models.EventMember, error)
	SubmitPreferences(ctx context.Context, token string, eventID id.EventID, req models.PreferencesRequest) (*models.EventMember, error)
	ConfirmAttendance(ctx context.Context, token string, eventID id.EventID) (*models.EventMember, error)
	CheckIn(ctx context.Context, ticketToken string) (*models.EventMember, error)
	AssignVenues(ctx context.Context, eventID id.EventID) (*models.BatchResult, error)
	AssignDatetime(ctx context.Context, emID id.EventMemberID, at time.Time) (*models.EventMember, error)
	RecordNonAttendance(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error)
	ProcessNonAttendanceWithSpecialVote(ctx context.Context, emID id.EventMemberID, req models.SpecialVoteRequest) (*models.EventMember, error)
	ReviewSpecialVote(ctx context.Context, emID id.EventMemberID, approve bool) (*models.EventMember, error)
	GenerateAndSendTicket(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error)
	OverrideStage(ctx context.Context, emID id.EventMemberID, req models.OverrideStageRequest) (*models.EventMember, error)
	SendInvitations(ctx context.Context, eventID id.EventID, region string) (*models.BatchResult, error)
	SendConfirmations(ctx context.Context, eventID id.EventID, region string) (*models.BatchResult, error)
	SendSpecialVoteLinks(ctx context.Context, eventID id.EventID) (*models.BatchResult, error)
	SendTickets(ctx context.Context, eventID id.EventID, region string) (*models.BatchResult, error)
	Statistics(ctx context.Context, eventID id.EventID) (*models.Statistics, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the member-token and ticket endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/api/bmm/{eventID}/preferences/{token}", h.handleSubmitPreferences)
	r.Post("/api/bmm/{eventID}/confirm/{token}", h.handleConfirmAttendance)
	r.Post("/api/checkin/{ticketToken}", h.handleCheckIn)
}

// RegisterAdmin mounts the admin endpoints; r must already require auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/events/{eventID}/members", h.handleList)
	r.Post("/api/admin/events/{eventID}/members", h.handleRegister)
	r.Post("/api/admin/events/{eventID}/assign-venues", h.handleAssignVenues)
	r.Post("/api/admin/events/{eventID}/campaigns/{campaign}", h.handleCampaign)
	r.Get("/api/admin/events/{eventID}/statistics", h.handleStatistics)

	r.Route("/api/admin/event-members/{eventMemberID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/non-attendance", h.handleNonAttendance)
		r.Post("/special-vote", h.handleSpecialVote)
		r.Post("/special-vote/review", h.handleReviewSpecialVote)
		r.Post("/ticket", h.handleTicket)
		r.Put("/datetime", h.handleAssignDatetime)
		r.Put("/stage", h.handleOverrideStage)
	})
}

type registerRequest struct {
	MemberID string `json:"member_id"`
	Region   string `json:"region"`
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

type datetimeRequest struct {
	Datetime time.Time `json:"datetime"`
}

func (h *Handler) handleSubmitPreferences(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	var req models.PreferencesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	em, err := h.service.SubmitPreferences(r.Context(), chi.URLParam(r, "token"), eventID, req)
	if err != nil {
		h.writeError(r.Context(), w, "preference submission failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleConfirmAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	em, err := h.service.ConfirmAttendance(r.Context(), chi.URLParam(r, "token"), eventID)
	if err != nil {
		h.writeError(r.Context(), w, "attendance confirmation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	em, err := h.service.CheckIn(r.Context(), chi.URLParam(r, "ticketToken"))
	if err != nil {
		h.writeError(r.Context(), w, "check-in failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := models.Filter{Region: q.Get("region")}
	for _, raw := range q["stage"] {
		st, err := models.ParseStage(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		f.Stages = append(f.Stages, st)
	}
	ems, err := h.service.List(r.Context(), eventID, f)
	if err != nil {
		h.writeError(r.Context(), w, "registration list failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"event_members": ems, "count": len(ems)})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	em, err := h.service.Register(r.Context(), eventID, memberID, req.Region)
	if err != nil {
		h.writeError(r.Context(), w, "registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, em)
}

func (h *Handler) handleAssignVenues(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.service.AssignVenues(r.Context(), eventID)
	if err != nil {
		h.writeError(r.Context(), w, "venue assignment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCampaign(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	ctx, region := r.Context(), r.URL.Query().Get("region")

	var (
		result *models.BatchResult
		err    error
	)
	switch chi.URLParam(r, "campaign") {
	case "invitations":
		result, err = h.service.SendInvitations(ctx, eventID, region)
	case "confirmations":
		result, err = h.service.SendConfirmations(ctx, eventID, region)
	case "special-vote-links":
		result, err = h.service.SendSpecialVoteLinks(ctx, eventID)
	case "tickets":
		result, err = h.service.SendTickets(ctx, eventID, region)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown campaign"))
		return
	}
	if err != nil {
		h.writeError(ctx, w, "campaign failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	st, err := h.service.Statistics(r.Context(), eventID)
	if err != nil {
		h.writeError(r.Context(), w, "statistics failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	em, err := h.service.Get(r.Context(), emID)
	if err != nil {
		h.writeError(r.Context(), w, "registration lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleNonAttendance(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	em, err := h.service.RecordNonAttendance(r.Context(), emID)
	if err != nil {
		h.writeError(r.Context(), w, "non-attendance failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleSpecialVote(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	var req models.SpecialVoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	em, err := h.service.ProcessNonAttendanceWithSpecialVote(r.Context(), emID, req)
	if err != nil {
		h.writeError(r.Context(), w, "special vote request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleReviewSpecialVote(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	em, err := h.service.ReviewSpecialVote(r.Context(), emID, req.Approve)
	if err != nil {
		h.writeError(r.Context(), w, "special vote review failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleTicket(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	em, err := h.service.GenerateAndSendTicket(r.Context(), emID)
	if err != nil {
		h.writeError(r.Context(), w, "ticket generation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleAssignDatetime(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	var req datetimeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	em, err := h.service.AssignDatetime(r.Context(), emID, req.Datetime)
	if err != nil {
		h.writeError(r.Context(), w, "datetime assignment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func (h *Handler) handleOverrideStage(w http.ResponseWriter, r *http.Request) {
	emID, ok := eventMemberIDParam(w, r)
	if !ok {
		return
	}
	var req models.OverrideStageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	em, err := h.service.OverrideStage(r.Context(), emID, req)
	if err != nil {
		h.writeError(r.Context(), w, "stage override failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, em)
}

func eventIDParam(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventID{}, false
	}
	return eventID, true
}

func eventMemberIDParam(w http.ResponseWriter, r *http.Request) (id.EventMemberID, bool) {
	emID, err := id.ParseEventMemberID(chi.URLParam(r, "eventMemberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventMemberID{}, false
	}
	return emID, true
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
