package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"unionhub/internal/bmm/config"
	"unionhub/internal/bmm/metrics"
	"unionhub/internal/bmm/models"
	emodels "unionhub/internal/event/models"
	mmodels "unionhub/internal/member/models"
	nmodels "unionhub/internal/notification/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
	"unionhub/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, em *models.EventMember) error
	Update(ctx context.Context, em *models.EventMember) error
	FindByID(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error)
	FindByEventAndMember(ctx context.Context, eventID id.EventID, memberID id.MemberID) (*models.EventMember, error)
	FindByTicketToken(ctx context.Context, token string) (*models.EventMember, error)
	ListByEvent(ctx context.Context, eventID id.EventID, f models.Filter) ([]*models.EventMember, error)
}

type MemberStore interface {
	FindByID(ctx context.Context, memberID id.MemberID) (*mmodels.Member, error)
	FindByToken(ctx context.Context, token string) (*mmodels.Member, error)
	Update(ctx context.Context, m *mmodels.Member) error
}

// EventLookup resolves events and the template they were created from.
type EventLookup interface {
	Get(ctx context.Context, eventID id.EventID) (*emodels.Event, error)
	Template(ctx context.Context, eventID id.EventID) (*emodels.EventTemplate, error)
}

type Notifier interface {
	Notify(ctx context.Context, n nmodels.Notification) error
}

// SendGuard claims a per-recipient send slot across processes.
type SendGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Service drives event members through the BMM workflow.
type Service struct {
	store    Store
	members  MemberStore
	events   EventLookup
	tx       tx.Runner
	cfg      *config.Config
	notifier Notifier
	renderer TicketRenderer
	guard    SendGuard
	logger   *slog.Logger
	auditor  audit.Emitter
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditor persists audit events in addition to the audit log lines.
func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithTicketRenderer(r TicketRenderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithSendGuard enables cross-process suppression of concurrent campaign sends.
func WithSendGuard(g SendGuard) Option {
	return func(s *Service) { s.guard = g }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store Store, members MemberStore, events EventLookup, runner tx.Runner, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:   store,
		members: members,
		events:  events,
		tx:      runner,
		cfg:     cfg,
		tracer:  otel.Tracer("unionhub/bmm"),
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = NewQRTicketRenderer(nil)
	}
	return s
}

// Register creates the member's registration for the event at INVITED. An
// existing registration is returned unchanged. A blank region falls back to
// the member's own region.
func (s *Service) Register(ctx context.Context, eventID id.EventID, memberID id.MemberID, region string) (*models.EventMember, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}

	var em *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindByEventAndMember(ctx, eventID, memberID)
		if err == nil {
			em = existing
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
		}

		m, err := s.loadMember(ctx, memberID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(region) == "" {
			region = m.Region
		}
		region = s.cfg.CanonicalRegion(region)

		created := models.NewEventMember(eventID, memberID, region, s.cfg.IsSpecialVoteEligible(region), requestcontext.Now(ctx))
		if err := s.store.Create(ctx, created); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "member is already registered for this event")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
		}
		em = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return em, nil
}

// Get returns one registration.
func (s *Service) Get(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	return s.load(ctx, emID)
}

// List returns the event's registrations matching f.
func (s *Service) List(ctx context.Context, eventID id.EventID, f models.Filter) ([]*models.EventMember, error) {
	ems, err := s.store.ListByEvent(ctx, eventID, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return ems, nil
}

// Statistics aggregates the event's registrations.
func (s *Service) Statistics(ctx context.Context, eventID id.EventID) (*models.Statistics, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	ems, err := s.List(ctx, eventID, models.Filter{})
	if err != nil {
		return nil, err
	}
	return models.ComputeStatistics(eventID, ems, s.cfg.VenueCapacity()), nil
}

func (s *Service) load(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	em, err := s.store.FindByID(ctx, emID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return em, nil
}

func (s *Service) loadByToken(ctx context.Context, token string, eventID id.EventID) (*mmodels.Member, *models.EventMember, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "token is required")
	}
	m, err := s.members.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	em, err := s.store.FindByEventAndMember(ctx, eventID, m.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "member is not registered for this event")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return m, em, nil
}

func (s *Service) loadMember(ctx context.Context, memberID id.MemberID) (*mmodels.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return m, nil
}

func (s *Service) save(ctx context.Context, em *models.EventMember) error {
	em.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, em); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
	}
	return nil
}

// transition applies t and records the move.
func (s *Service) transition(em *models.EventMember, t models.Transition) error {
	if err := em.Apply(t); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(em.Stage))
	}
	return nil
}

func (s *Service) link(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.TrimRight(s.cfg.PublicURL(), "/") + "/" + strings.Join(escaped, "/")
}

func recipient(m *mmodels.Member) nmodels.Recipient {
	r := nmodels.Recipient{Name: m.Name, Email: m.DeliverableEmail()}
	if m.HasMobile {
		r.Mobile = m.TelephoneMobile
	}
	return r
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
