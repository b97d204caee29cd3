package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"unionhub/internal/auth/models"
	"unionhub/internal/auth/store"
	"unionhub/internal/auth/token"
	dErrors "unionhub/pkg/domain-errors"
	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/audit/publisher"
	auditstore "unionhub/pkg/platform/audit/store/memory"
	"unionhub/pkg/requestcontext"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *store.InMemory
	tokens  *token.JWTService
	audit   *publisher.Publisher
	service *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.now = time.Now().Truncate(time.Second)
	s.ctx = requestcontext.WithClientMetadata(
		requestcontext.WithTime(context.Background(), s.now),
		"10.0.0.8",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	)
	s.store = store.NewInMemory()
	s.tokens = token.NewJWTService("test-key", "unionhub", time.Hour)
	s.audit = publisher.NewPublisher(auditstore.NewInMemoryStore())
	s.service = New(s.store, s.tokens, WithBcryptCost(bcrypt.MinCost), WithAuditor(s.audit))

	_, err := s.service.CreateAdmin(s.ctx, models.CreateAdminRequest{Username: " Organiser ", Password: "correct horse battery"})
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) TestCreateAdmin() {
	s.Run("rejects duplicates case-insensitively", func() {
		_, err := s.service.CreateAdmin(s.ctx, models.CreateAdminRequest{Username: "ORGANISER", Password: "another long password"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects short passwords", func() {
		_, err := s.service.CreateAdmin(s.ctx, models.CreateAdminRequest{Username: "second", Password: "short"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("never stores the plain password", func() {
		a, err := s.store.FindByUsername(s.ctx, "organiser")
		s.Require().NoError(err)
		s.NotEqual("correct horse battery", a.PasswordHash)
	})
}

func (s *AuthServiceSuite) TestLogin() {
	s.Run("issues a token for valid credentials", func() {
		result, err := s.service.Login(s.ctx, models.LoginRequest{Username: "organiser", Password: "correct horse battery"})
		s.Require().NoError(err)
		s.Equal("Bearer", result.TokenType)
		s.Equal(s.now.Add(time.Hour), result.ExpiresAt)

		username, err := s.tokens.ValidateToken(result.Token)
		s.Require().NoError(err)
		s.Equal("organiser", username)

		a, err := s.store.FindByUsername(s.ctx, "organiser")
		s.Require().NoError(err)
		s.Require().NotNil(a.LastLoginAt)
		s.Equal("10.0.0.8", a.LastLoginIP)
		s.Contains(a.LastLoginDevice, "Firefox")
	})

	s.Run("wrong password and unknown user look the same", func() {
		_, wrongPassword := s.service.Login(s.ctx, models.LoginRequest{Username: "organiser", Password: "nope"})
		_, unknownUser := s.service.Login(s.ctx, models.LoginRequest{Username: "stranger", Password: "nope"})
		s.True(dErrors.HasCode(wrongPassword, dErrors.CodeUnauthorized))
		s.Equal(wrongPassword.Error(), unknownUser.Error())
	})

	s.Run("requires both fields", func() {
		_, err := s.service.Login(s.ctx, models.LoginRequest{Username: "organiser"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuthServiceSuite) TestLoginIsAudited() {
	_, err := s.service.Login(s.ctx, models.LoginRequest{Username: "organiser", Password: "wrong password here"})
	s.Require().Error(err)
	_, err = s.service.Login(s.ctx, models.LoginRequest{Username: "organiser", Password: "correct horse battery"})
	s.Require().NoError(err)

	events, err := s.audit.List(s.ctx, audit.Filter{Category: audit.CategorySecurity})
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("admin_login", events[0].Action)
	s.Equal("organiser", events[0].Actor)
	s.Equal("organiser", events[0].Subject)
	s.Equal("admin_login_failed", events[1].Action)
	s.Equal("10.0.0.8", events[1].Attributes["client_ip"])
	s.Equal("admin_created", events[2].Action)
}
