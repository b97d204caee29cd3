package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"unionhub/internal/event/models"
	"unionhub/internal/event/store"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
)

type EventServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
}

func TestEventServiceSuite(t *testing.T) {
	suite.Run(t, new(EventServiceSuite))
}

func (s *EventServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store)
	s.ctx = context.Background()
}

func (s *EventServiceSuite) TestSeedIsIdempotent() {
	created, err := s.service.SeedDefaultTemplates(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, created)

	created, err = s.service.SeedDefaultTemplates(s.ctx)
	s.Require().NoError(err)
	s.Zero(created)

	tpls, err := s.service.ListTemplates(s.ctx)
	s.Require().NoError(err)
	s.Len(tpls, 3)
}

func (s *EventServiceSuite) TestCreateRequiresSeededTemplate() {
	_, err := s.service.Create(s.ctx, models.CreateEventRequest{Name: "BMM 2026", Type: "BMM_VOTING"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *EventServiceSuite) TestCreateUpdateAndConfig() {
	_, err := s.service.SeedDefaultTemplates(s.ctx)
	s.Require().NoError(err)

	e, err := s.service.Create(s.ctx, models.CreateEventRequest{
		Name:      "BMM 2026",
		Type:      "bmm_voting",
		Overrides: map[string]string{models.ConfigLandingTitle: "BMM 2026"},
	})
	s.Require().NoError(err)
	s.True(e.IsActive)
	s.Equal(models.EventTypeBMMVoting, e.Type)

	s.Run("effective config overlays overrides", func() {
		cfg, err := s.service.EffectiveConfig(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal("BMM 2026", cfg[models.ConfigLandingTitle])
		s.Equal("true", cfg["special_vote_enabled"])
	})

	s.Run("template flags", func() {
		tpl, err := s.service.Template(s.ctx, e.ID)
		s.Require().NoError(err)
		s.True(tpl.AllowsQRCheckin)
	})

	s.Run("update toggles flags and removes blank overrides", func() {
		open := true
		updated, err := s.service.Update(s.ctx, e.ID, models.UpdateEventRequest{
			RegistrationOpen: &open,
			Overrides:        map[string]string{models.ConfigLandingTitle: ""},
		})
		s.Require().NoError(err)
		s.True(updated.RegistrationOpen)
		s.NotContains(updated.Overrides, models.ConfigLandingTitle)
	})

	s.Run("blank name rejected", func() {
		blank := " "
		_, err := s.service.Update(s.ctx, e.ID, models.UpdateEventRequest{Name: &blank})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown event", func() {
		_, err := s.service.Get(s.ctx, id.NewEventID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EventServiceSuite) TestCreateValidation() {
	_, err := s.service.Create(s.ctx, models.CreateEventRequest{Name: "", Type: "BMM_VOTING"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.Create(s.ctx, models.CreateEventRequest{Name: "x", Type: "PARTY"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
