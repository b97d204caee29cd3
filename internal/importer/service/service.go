package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	bmmmodels "unionhub/internal/bmm/models"
	"unionhub/internal/importer/informer"
	"unionhub/internal/importer/metrics"
	"unionhub/internal/importer/models"
	"unionhub/internal/importer/parse"
	mmodels "unionhub/internal/member/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/email"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
	"unionhub/pkg/requestcontext"
)

type MemberStore interface {
	Create(ctx context.Context, m *mmodels.Member) error
	Update(ctx context.Context, m *mmodels.Member) error
	FindByMembershipNumber(ctx context.Context, number string) (*mmodels.Member, error)
}

// Registrar enrols an imported member in an event.
type Registrar interface {
	Register(ctx context.Context, eventID id.EventID, memberID id.MemberID, region string) (*bmmmodels.EventMember, error)
}

// DatasetFetcher downloads Informer dataset rows.
type DatasetFetcher interface {
	Fetch(ctx context.Context, tokenOrURL string) ([]map[string]any, error)
}

type outcome string

const (
	outcomeCreated outcome = "created"
	outcomeUpdated outcome = "updated"
	outcomeSkipped outcome = "skipped"
	outcomeFailed  outcome = "failed"
)

// Service reconciles imported rows with stored members.
type Service struct {
	members   MemberStore
	tx        tx.Runner
	registrar Registrar
	fetcher   DatasetFetcher
	logger    *slog.Logger
	auditor   audit.Emitter
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

func WithRegistrar(r Registrar) Option {
	return func(s *Service) { s.registrar = r }
}

func WithFetcher(f DatasetFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(members MemberStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		members: members,
		tx:      runner,
		tracer:  otel.Tracer("unionhub/importer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options are the caller-controlled settings shared by CSV and Informer imports.
type Options struct {
	// Source overrides the default provenance tag when known.
	Source    id.Source
	Emergency bool
	EventID   *id.EventID
}

// ImportCSV parses r, detects its dialect and reconciles every row.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, opts Options) (*models.Result, error) {
	file, err := parse.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	source := opts.Source
	if !source.IsKnown() {
		source = file.Dialect.DefaultSource()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "csv import parsed",
			"dialect", string(file.Dialect),
			"rows", len(file.Records),
			"source", source.String(),
		)
	}
	return s.Import(ctx, models.Request{
		Source:    source,
		Mode:      file.Dialect.Mode(),
		Emergency: opts.Emergency,
		EventID:   opts.EventID,
		Records:   file.Records,
	})
}

// ImportInformer fetches a dataset and merges it. Informer feeds always merge.
func (s *Service) ImportInformer(ctx context.Context, tokenOrURL string, opts Options) (*models.Result, error) {
	if s.fetcher == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "informer is not configured")
	}
	rows, err := s.fetcher.Fetch(ctx, tokenOrURL)
	if err != nil {
		return nil, err
	}
	source := opts.Source
	if !source.IsKnown() {
		source = id.SourceInformerEmailMembers
	}
	return s.Import(ctx, models.Request{
		Source:    source,
		Mode:      models.ModeMerge,
		Emergency: opts.Emergency,
		EventID:   opts.EventID,
		Records:   informer.ToRecords(rows),
	})
}

// Import reconciles req.Records one row at a time, each in its own unit of
// work. Row failures are counted in the result and never abort the run.
func (s *Service) Import(ctx context.Context, req models.Request) (*models.Result, error) {
	if req.Mode != models.ModeCreateOnly && req.Mode != models.ModeMerge {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown import mode: "+string(req.Mode))
	}
	if req.EventID != nil && s.registrar == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "event registration is not configured")
	}

	ctx, span := s.tracer.Start(ctx, "importer.Import")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", req.Source.String()),
		attribute.String("mode", string(req.Mode)),
		attribute.Int("records", len(req.Records)),
	)

	start := time.Now()
	result := &models.Result{Source: req.Source, Total: len(req.Records), Errors: []string{}}
	seen := make(map[string]int, len(req.Records))
	for _, rec := range req.Records {
		out, err := s.importRecord(ctx, req, rec, seen)
		switch out {
		case outcomeCreated:
			result.Created++
		case outcomeUpdated:
			result.Updated++
		case outcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
			result.Errors = append(result.Errors, rowError(rec, err))
			if s.logger != nil {
				s.logger.WarnContext(ctx, "import row failed",
					"row", rec.Row,
					"membership_number", rec.MembershipNumber,
					"error", err,
				)
			}
		}
		if s.metrics != nil {
			s.metrics.IncrementRecord(req.Source.String(), string(out))
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(req.Source.String(), start)
	}
	span.SetAttributes(attribute.Int("failed", result.Failed))
	s.logAudit(ctx, "members_imported",
		"source", req.Source.String(),
		"mode", string(req.Mode),
		"emergency", req.Emergency,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (s *Service) importRecord(ctx context.Context, req models.Request, rec models.Record, seen map[string]int) (outcome, error) {
	number := strings.TrimSpace(rec.MembershipNumber)
	if number == "" {
		return outcomeFailed, dErrors.New(dErrors.CodeValidation, "membership number is required")
	}
	if rec.FullName() == "" {
		return outcomeFailed, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if e := strings.TrimSpace(rec.Email); e != "" && !email.IsValid(e) {
		return outcomeFailed, dErrors.New(dErrors.CodeValidation, "invalid email address: "+e)
	}
	if req.Mode == models.ModeCreateOnly {
		if first, dup := seen[number]; dup {
			return outcomeFailed, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("duplicate membership number, first seen on row %d", first))
		}
		seen[number] = rec.Row
	}

	var out outcome
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.members.FindByMembershipNumber(ctx, number)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			existing = nil
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
		}

		var m *mmodels.Member
		if existing == nil {
			if m, err = s.create(ctx, req.Source, number, rec); err != nil {
				return err
			}
			out = outcomeCreated
		} else {
			if req.Mode == models.ModeCreateOnly {
				return dErrors.New(dErrors.CodeConflict, "membership number already exists")
			}
			changed, err := s.merge(ctx, req, existing, rec)
			if err != nil {
				return err
			}
			m, out = existing, outcomeUpdated
			if !changed {
				out = outcomeSkipped
			}
		}

		if req.EventID != nil {
			if _, err := s.registrar.Register(ctx, *req.EventID, m.ID, rec.Region); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return outcomeFailed, err
	}
	return out, nil
}

func (s *Service) create(ctx context.Context, source id.Source, number string, rec models.Record) (*mmodels.Member, error) {
	now := requestcontext.Now(ctx)
	m, err := mmodels.NewMember(number, rec.FullName(), source, now)
	if err != nil {
		return nil, err
	}
	m.Overlay(rec.Profile())
	if n := strings.TrimSpace(rec.Name); n != "" {
		m.Name = n
	}
	m.Forum = strings.TrimSpace(rec.Forum)
	applyEmailFallback(m, source)
	m.LastImportedAt = &now

	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "membership number already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create member")
	}
	return m, nil
}

// merge overlays rec onto m when the priority policy allows it. It reports
// whether any field changed; the import timestamp is refreshed regardless.
func (s *Service) merge(ctx context.Context, req models.Request, m *mmodels.Member, rec models.Record) (bool, error) {
	if !id.CanOverwrite(m.DataSource, req.Source, req.Emergency) {
		return false, dErrors.New(dErrors.CodeConflict, fmt.Sprintf(
			"%s data cannot overwrite %s data without emergency mode", req.Source, m.DataSource))
	}

	name := m.Name
	changed := slices.ContainsFunc(m.Overlay(rec.Profile()), func(f string) bool { return f != mmodels.FieldName })
	if n := strings.TrimSpace(rec.Name); n != "" {
		m.Name = n
	}
	changed = changed || m.Name != name
	if f := strings.TrimSpace(rec.Forum); f != "" && f != m.Forum {
		m.Forum = f
		changed = true
	}
	if m.PrimaryEmail == nil {
		applyEmailFallback(m, req.Source)
		changed = changed || m.PrimaryEmail != nil
	}
	if m.DataSource != req.Source {
		if req.Emergency && req.Source.Rank() > m.DataSource.Rank() && s.logger != nil {
			s.logger.WarnContext(ctx, "emergency import overrode higher priority source",
				"membership_number", m.MembershipNumber,
				"existing_source", m.DataSource.String(),
				"incoming_source", req.Source.String(),
			)
		}
		m.DataSource = req.Source
		changed = true
	}

	now := requestcontext.Now(ctx)
	m.LastImportedAt = &now
	if changed {
		m.UpdatedAt = now
	}
	if err := s.members.Update(ctx, m); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update member")
	}
	return changed, nil
}

// applyEmailFallback gives members without an email a deterministic
// undeliverable address, except on SMS feeds where the email stays empty.
// Contact flags always reflect the real values.
func applyEmailFallback(m *mmodels.Member, source id.Source) {
	if m.PrimaryEmail == nil && !source.IsSMSFeed() {
		placeholder := email.Placeholder(m.TelephoneMobile, m.MembershipNumber)
		m.PrimaryEmail = &placeholder
	}
	m.RefreshContactFlags()
}

// SyncDatasets imports every configured Informer dataset, keyed by source tag.
// Used by the scheduled sync; failures are logged and do not stop other datasets.
func (s *Service) SyncDatasets(ctx context.Context, datasets map[string]string) {
	for name, token := range datasets {
		source, err := id.ParseSource(name)
		if err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "skipping informer dataset with unknown source", "source", name)
			}
			continue
		}
		result, err := s.ImportInformer(ctx, token, Options{Source: source})
		if s.logger == nil {
			continue
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled informer sync failed", "source", name, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "scheduled informer sync completed",
			"source", name,
			"created", result.Created,
			"updated", result.Updated,
			"failed", result.Failed,
		)
	}
}

func rowError(rec models.Record, err error) string {
	if n := strings.TrimSpace(rec.MembershipNumber); n != "" {
		return fmt.Sprintf("row %d (%s): %v", rec.Row, n, err)
	}
	return fmt.Sprintf("row %d: %v", rec.Row, err)
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
