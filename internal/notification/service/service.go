package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"unionhub/internal/notification/metrics"
	"unionhub/internal/notification/models"
	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/requestcontext"
	"unionhub/pkg/textutil"
)

type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *models.Template) error
	LatestTemplate(ctx context.Context, code string) (*models.Template, error)
	ListLatestTemplates(ctx context.Context) ([]*models.Template, error)
}

type LogStore interface {
	AppendLog(ctx context.Context, l *models.Log) error
	ListLogs(ctx context.Context, f models.LogFilter) ([]*models.Log, error)
}

// Sender hands a rendered message to a transport.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

const defaultCacheSize = 64

// Service renders templates and dispatches messages, recording every attempt.
type Service struct {
	templates TemplateStore
	logs      LogStore
	senders   map[models.Channel]Sender
	cache     *lru.Cache[string, *models.Template]
	logger    *slog.Logger
	auditor   audit.Emitter
	metrics   *metrics.Metrics
	cacheSize int
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

// WithSender routes messages on channel to sender.
func WithSender(channel models.Channel, sender Sender) Option {
	return func(s *Service) { s.senders[channel] = sender }
}

func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

func New(templates TemplateStore, logs LogStore, opts ...Option) (*Service, error) {
	s := &Service{
		templates: templates,
		logs:      logs,
		senders:   make(map[models.Channel]Sender),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.New[string, *models.Template](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create template cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// EnsureDefaults creates version 1 of every default template code that has
// no template yet. It returns the number created.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, d := range models.DefaultTemplates {
		if _, err := s.templates.LatestTemplate(ctx, d.Code); err == nil {
			continue
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return created, fmt.Errorf("load template %s: %w", d.Code, err)
		}
		err := s.templates.CreateTemplate(ctx, &models.Template{
			ID:        uuid.New(),
			Code:      d.Code,
			Version:   1,
			Channel:   d.Channel,
			Subject:   d.Subject,
			Body:      d.Body,
			IsActive:  true,
			CreatedAt: requestcontext.Now(ctx),
		})
		if err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return created, fmt.Errorf("create template %s: %w", d.Code, err)
		}
		if err == nil {
			created++
		}
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "notification templates ensured", "created", created)
	}
	return created, nil
}

// Template returns the latest active version of code.
func (s *Service) Template(ctx context.Context, code string) (*models.Template, error) {
	if t, ok := s.cache.Get(code); ok {
		s.observeCache(true)
		return t, nil
	}
	s.observeCache(false)
	t, err := s.templates.LatestTemplate(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "notification template not found: "+code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification template")
	}
	s.cache.Add(code, t)
	return t, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]*models.Template, error) {
	out, err := s.templates.ListLatestTemplates(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notification templates")
	}
	return out, nil
}

// UpdateTemplate publishes the next version of code. Earlier versions stay stored.
func (s *Service) UpdateTemplate(ctx context.Context, code string, req models.UpdateTemplateRequest) (*models.Template, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "template body is required")
	}
	current, err := s.Template(ctx, code)
	if err != nil {
		return nil, err
	}
	if current.Channel == models.ChannelEmail && strings.TrimSpace(req.Subject) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email templates need a subject")
	}

	next := &models.Template{
		ID:        uuid.New(),
		Code:      current.Code,
		Version:   current.Version + 1,
		Channel:   current.Channel,
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		IsActive:  true,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.templates.CreateTemplate(ctx, next); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "template was updated concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save notification template")
	}
	s.cache.Remove(code)
	s.logAudit(ctx, "notification_template_updated", "code", code, "version", next.Version)
	return next, nil
}

// Render fills code's template with vars. Email bodies get markdown links as anchors.
func (s *Service) Render(ctx context.Context, code string, vars map[string]string) (models.Channel, string, string, error) {
	t, err := s.Template(ctx, code)
	if err != nil {
		return "", "", "", err
	}
	subject := textutil.Render(t.Subject, vars)
	if t.Channel == models.ChannelEmail {
		return t.Channel, subject, textutil.RenderHTML(t.Body, vars), nil
	}
	return t.Channel, subject, textutil.Render(t.Body, vars), nil
}

// Notify renders and sends n by email when the recipient has one, otherwise
// by SMS when an SMS template and mobile number are available.
func (s *Service) Notify(ctx context.Context, n models.Notification) error {
	var code, recipient string
	switch {
	case n.EmailTemplate != "" && n.To.Email != "":
		code, recipient = n.EmailTemplate, n.To.Email
	case n.SMSTemplate != "" && n.To.Mobile != "":
		code, recipient = n.SMSTemplate, n.To.Mobile
	default:
		return dErrors.New(dErrors.CodeValidation, "recipient has no deliverable contact")
	}

	channel, subject, content, err := s.Render(ctx, code, n.Vars)
	if err != nil {
		return err
	}
	return s.Send(ctx, models.Message{
		Channel:          channel,
		Recipient:        recipient,
		RecipientName:    n.To.Name,
		Subject:          subject,
		Content:          content,
		TemplateCode:     code,
		NotificationType: n.Type,
		EventMemberID:    n.EventMemberID,
	})
}

// Send routes msg to its channel's sender and logs the attempt. A failed log
// write is reported but does not change the send outcome.
func (s *Service) Send(ctx context.Context, msg models.Message) error {
	sender, ok := s.senders[msg.Channel]
	var sendErr error
	if !ok {
		sendErr = dErrors.New(dErrors.CodeUnavailable, "no sender for channel "+string(msg.Channel))
	} else {
		sendErr = sender.Send(ctx, msg)
	}

	entry := &models.Log{
		ID:               uuid.New(),
		Channel:          msg.Channel,
		Recipient:        msg.Recipient,
		Subject:          msg.Subject,
		Content:          msg.Content,
		TemplateCode:     msg.TemplateCode,
		NotificationType: msg.NotificationType,
		EventMemberID:    msg.EventMemberID,
		Success:          sendErr == nil,
		AdminUsername:    requestcontext.AdminUsername(ctx),
		CreatedAt:        requestcontext.Now(ctx),
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to record notification log",
			"recipient", msg.Recipient,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementSent(string(msg.Channel), sendErr == nil)
	}
	if sendErr != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "notification send failed",
				"channel", string(msg.Channel),
				"template_code", msg.TemplateCode,
				"error", sendErr,
			)
		}
		return sendErr
	}
	return nil
}

func (s *Service) ListLogs(ctx context.Context, f models.LogFilter) ([]*models.Log, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	out, err := s.logs.ListLogs(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notification logs")
	}
	return out, nil
}

func (s *Service) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.IncrementCache(hit)
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
	if admin := requestcontext.AdminUsername(ctx); admin != "" {
		attributes = append(attributes, "admin", admin)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
