package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"unionhub/internal/member/metrics"
	"unionhub/internal/member/models"
	nmodels "unionhub/internal/notification/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
	"unionhub/pkg/requestcontext"
)

type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	Update(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	FindByMembershipNumber(ctx context.Context, number string) (*models.Member, error)
	FindByToken(ctx context.Context, token string) (*models.Member, error)
	List(ctx context.Context, f models.Filter) ([]*models.Member, error)
}

type FormStore interface {
	CreateForm(ctx context.Context, form *models.FinancialForm) error
	UpdateFormSync(ctx context.Context, formID uuid.UUID, status models.SyncStatus, syncErr string, at time.Time) error
	ListForms(ctx context.Context, memberID id.MemberID) ([]*models.FinancialForm, error)
}

// RegistrationAdvancer moves an event registration forward when the member
// edits their profile.
type RegistrationAdvancer interface {
	AdvanceOnProfileUpdate(ctx context.Context, eventID id.EventID, memberID id.MemberID) error
}

// MemberSyncer pushes a saved member to the external membership system.
type MemberSyncer interface {
	SyncMember(ctx context.Context, m *models.Member) error
}

type Notifier interface {
	Notify(ctx context.Context, n nmodels.Notification) error
}

// Service implements member self-service and admin lookups.
type Service struct {
	members  MemberStore
	forms    FormStore
	tx       tx.Runner
	advancer RegistrationAdvancer
	syncer   MemberSyncer
	notifier Notifier
	logger   *slog.Logger
	auditor  audit.Emitter
	metrics  *metrics.Metrics
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

func WithRegistrationAdvancer(a RegistrationAdvancer) Option {
	return func(s *Service) { s.advancer = a }
}

// WithMemberSyncer enables the post-commit sync. Without it forms are SKIPPED.
func WithMemberSyncer(syncer MemberSyncer) Option {
	return func(s *Service) { s.syncer = syncer }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func New(members MemberStore, forms FormStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{members: members, forms: forms, tx: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify exchanges a membership number and verification code for the member's token.
func (s *Service) Verify(ctx context.Context, req models.VerifyRequest) (string, error) {
	number := strings.TrimSpace(req.MembershipNumber)
	code := strings.TrimSpace(req.VerificationCode)
	if number == "" || code == "" {
		return "", dErrors.New(dErrors.CodeValidation, "membership number and verification code are required")
	}

	m, err := s.members.FindByMembershipNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incrementVerification("unknown_member")
			return "", dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	if subtle.ConstantTimeCompare([]byte(m.VerificationCode), []byte(code)) != 1 {
		s.incrementVerification("bad_code")
		s.logAudit(ctx, "member_verification_failed", "member_id", m.ID.String())
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid verification code")
	}
	s.incrementVerification("ok")
	return m.Token, nil
}

// GetByToken resolves the member behind a registration link.
func (s *Service) GetByToken(ctx context.Context, token string) (*models.Member, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "token is required")
	}
	m, err := s.members.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, f models.Filter) ([]*models.Member, error) {
	members, err := s.members.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}

func (s *Service) ListForms(ctx context.Context, memberID id.MemberID) ([]*models.FinancialForm, error) {
	forms, err := s.forms.ListForms(ctx, memberID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list financial forms")
	}
	return forms, nil
}

// SubmitFinancialForm saves a self-service profile update and its audit
// record in one unit of work, then syncs the member externally. A failed
// sync is recorded on the form and never undoes the save.
func (s *Service) SubmitFinancialForm(ctx context.Context, token string, req models.FinancialFormRequest) (*models.FinancialForm, error) {
	if err := req.Profile.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var (
		member *models.Member
		form   *models.FinancialForm
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		m, err := s.GetByToken(ctx, token)
		if err != nil {
			return err
		}

		before := m.Snapshot()
		changed := m.Overlay(req.Profile)
		m.HasRegistered = true
		if id.CanOverwrite(m.DataSource, id.SourceFinancialForm, false) {
			m.DataSource = id.SourceFinancialForm
		}
		m.UpdatedAt = now
		if err := s.members.Update(ctx, m); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save member")
		}

		f := &models.FinancialForm{
			ID:            uuid.New(),
			MemberID:      m.ID,
			Before:        before,
			After:         m.Snapshot(),
			ChangedFields: changed,
			Source:        id.SourceFinancialForm,
			SyncStatus:    models.SyncPending,
			CreatedAt:     now,
		}
		if err := s.forms.CreateForm(ctx, f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save financial form")
		}

		if req.EventID != nil && s.advancer != nil {
			if err := s.advancer.AdvanceOnProfileUpdate(ctx, *req.EventID, m.ID); err != nil {
				return err
			}
		}
		member, form = m, f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "financial_form_submitted",
		"member_id", member.ID.String(),
		"changed_fields", strings.Join(form.ChangedFields, ","),
	)
	if s.metrics != nil {
		s.metrics.IncrementFormSubmitted()
	}

	s.syncAfterCommit(ctx, member, form)
	s.sendReceipt(ctx, member)
	return form, nil
}

func (s *Service) syncAfterCommit(ctx context.Context, m *models.Member, form *models.FinancialForm) {
	status, syncErr := models.SyncSkipped, ""
	if s.syncer != nil {
		status = models.SyncSynced
		if err := s.syncer.SyncMember(ctx, m); err != nil {
			status, syncErr = models.SyncFailed, err.Error()
			if s.logger != nil {
				s.logger.WarnContext(ctx, "member sync failed",
					"member_id", m.ID.String(),
					"form_id", form.ID.String(),
					"error", err,
				)
			}
		}
	}

	at := requestcontext.Now(ctx)
	if err := s.forms.UpdateFormSync(ctx, form.ID, status, syncErr, at); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to record sync status",
			"form_id", form.ID.String(),
			"error", err,
		)
	}
	form.SyncStatus, form.SyncError, form.SyncedAt = status, syncErr, &at
	if s.metrics != nil {
		s.metrics.IncrementSync(string(status))
	}
}

func (s *Service) sendReceipt(ctx context.Context, m *models.Member) {
	if s.notifier == nil || m.DeliverableEmail() == "" {
		return
	}
	err := s.notifier.Notify(ctx, nmodels.Notification{
		EmailTemplate: nmodels.CodeFinancialFormReceipt,
		To:            nmodels.Recipient{Name: m.Name, Email: m.DeliverableEmail()},
		Vars: map[string]string{
			"name":             m.Name,
			"membershipNumber": m.MembershipNumber,
		},
		Type: nmodels.TypeFormReceipt,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "financial form receipt not sent",
			"member_id", m.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) incrementVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementVerification(outcome)
	}
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
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
