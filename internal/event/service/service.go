package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"unionhub/internal/event/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/requestcontext"
)

type Store interface {
	CreateTemplateIfAbsent(ctx context.Context, t *models.EventTemplate) (bool, error)
	FindTemplateByID(ctx context.Context, templateID uuid.UUID) (*models.EventTemplate, error)
	FindTemplateByName(ctx context.Context, name string) (*models.EventTemplate, error)
	ListTemplates(ctx context.Context) ([]*models.EventTemplate, error)
	CreateEvent(ctx context.Context, e *models.Event) error
	UpdateEvent(ctx context.Context, e *models.Event) error
	FindEventByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
}

// Service manages events and their templates.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor audit.Emitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditor persists audit events in addition to the audit log lines.
func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedDefaultTemplates creates the default template of each event type when
// absent. Running it again changes nothing.
func (s *Service) SeedDefaultTemplates(ctx context.Context) (int, error) {
	created := 0
	for _, t := range models.DefaultTemplates(requestcontext.Now(ctx)) {
		ok, err := s.store.CreateTemplateIfAbsent(ctx, t)
		if err != nil {
			return created, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed event template "+t.Name)
		}
		if ok {
			created++
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "event templates seeded", "created", created)
	}
	return created, nil
}

// Create makes an event bound to its type's default template.
func (s *Service) Create(ctx context.Context, req models.CreateEventRequest) (*models.Event, error) {
	eventType, err := req.Validate()
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.FindTemplateByName(ctx, models.DefaultTemplateName(eventType))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "no default template for event type "+string(eventType))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event template")
	}

	now := requestcontext.Now(ctx)
	overrides := req.Overrides
	if overrides == nil {
		overrides = map[string]string{}
	}
	e := &models.Event{
		ID:               id.NewEventID(),
		Name:             strings.TrimSpace(req.Name),
		Type:             eventType,
		TemplateID:       tpl.ID,
		IsActive:         true,
		RegistrationOpen: req.RegistrationOpen,
		EventDate:        req.EventDate,
		Overrides:        overrides,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	s.logAudit(ctx, "event_created", "event_id", e.ID.String(), "event_type", string(e.Type))
	return e, nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	e, err := s.store.FindEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]*models.EventTemplate, error) {
	tpls, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list event templates")
	}
	return tpls, nil
}

// Update applies the non-nil fields of req. Override keys with an empty value are removed.
func (s *Service) Update(ctx context.Context, eventID id.EventID, req models.UpdateEventRequest) (*models.Event, error) {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "event name cannot be blank")
		}
		e.Name = name
	}
	if req.EventDate != nil {
		e.EventDate = req.EventDate
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	if req.RegistrationOpen != nil {
		e.RegistrationOpen = *req.RegistrationOpen
	}
	if e.Overrides == nil {
		e.Overrides = map[string]string{}
	}
	for k, v := range req.Overrides {
		if v == "" {
			delete(e.Overrides, k)
			continue
		}
		e.Overrides[k] = v
	}
	e.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.UpdateEvent(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update event")
	}
	s.logAudit(ctx, "event_updated", "event_id", e.ID.String())
	return e, nil
}

// Template returns the template an event was created from.
func (s *Service) Template(ctx context.Context, eventID id.EventID) (*models.EventTemplate, error) {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.FindTemplateByID(ctx, e.TemplateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event template not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event template")
	}
	return tpl, nil
}

// EffectiveConfig returns template defaults overlaid by the event's overrides.
func (s *Service) EffectiveConfig(ctx context.Context, eventID id.EventID) (map[string]string, error) {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.Template(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return models.EffectiveConfig(tpl, e), nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.NewEvent(ctx, event, attributes...)); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record audit event", "event", event, "error", err)
		}
	}
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if admin := requestcontext.AdminUsername(ctx); admin != "" {
		attributes = append(attributes, "admin", admin)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
