package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"unionhub/internal/auth/device"
	"unionhub/internal/auth/models"
	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/requestcontext"
)

type AdminStore interface {
	Create(ctx context.Context, a *models.Admin) error
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	RecordLogin(ctx context.Context, a *models.Admin) error
}

type TokenIssuer interface {
	Generate(username string, now time.Time) (string, time.Time, error)
}

// dummyHash is compared against when the username is unknown so both paths
// pay the bcrypt cost.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unionhub-dummy-password"), bcrypt.DefaultCost)

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

type Service struct {
	admins     AdminStore
	tokens     TokenIssuer
	logger     *slog.Logger
	auditor    audit.Emitter
	bcryptCost int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditor persists audit events in addition to the audit log lines.
func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(admins AdminStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{admins: admins, tokens: tokens, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks the password and issues a bearer token. Unknown usernames and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	username := models.NormalizeUsername(req.Username)

	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		s.logLoginFailure(ctx, username)
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		s.logLoginFailure(ctx, username)
		return nil, errInvalidCredentials
	}

	now := requestcontext.Now(ctx)
	token, expiresAt, err := s.tokens.Generate(admin.Username, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	admin.LastLoginAt = &now
	admin.LastLoginIP = requestcontext.ClientIP(ctx)
	admin.LastLoginDevice = device.ParseUserAgent(requestcontext.UserAgent(ctx))
	if err := s.admins.RecordLogin(ctx, admin); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record admin login", "admin", admin.Username, "error", err)
	}

	s.logAudit(requestcontext.WithAdminUsername(ctx, admin.Username), "admin_login",
		"username", admin.Username,
		"client_ip", admin.LastLoginIP,
		"device", admin.LastLoginDevice,
	)
	return &models.LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		Username:  admin.Username,
	}, nil
}

// CreateAdmin stores a new organiser account with a bcrypt password hash.
func (s *Service) CreateAdmin(ctx context.Context, req models.CreateAdminRequest) (*models.Admin, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	admin := &models.Admin{
		ID:           uuid.New(),
		Username:     models.NormalizeUsername(req.Username),
		PasswordHash: string(hash),
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "admin username already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
	}
	s.logAudit(ctx, "admin_created", "username", admin.Username)
	return admin, nil
}

func (s *Service) logLoginFailure(ctx context.Context, username string) {
	if s.auditor != nil {
		event := audit.NewEvent(ctx, "admin_login_failed",
			"username", username,
			"client_ip", requestcontext.ClientIP(ctx),
		)
		if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record audit event", "event", event.Action, "error", err)
		}
	}
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, "admin login failed",
		"username", username,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
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
