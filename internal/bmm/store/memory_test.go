package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"unionhub/internal/bmm/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
)

type EventMemberStoreSuite struct {
	suite.Suite
	store   *InMemory
	ctx     context.Context
	eventID id.EventID
}

func TestEventMemberStoreSuite(t *testing.T) {
	suite.Run(t, new(EventMemberStoreSuite))
}

func (s *EventMemberStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.eventID = id.NewEventID()
}

func (s *EventMemberStoreSuite) register(region string) *models.EventMember {
	em := models.NewEventMember(s.eventID, id.NewMemberID(), region, false, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, em))
	return em
}

func (s *EventMemberStoreSuite) TestUniquePerEventAndMember() {
	em := s.register("Central Region")
	dup := models.NewEventMember(s.eventID, em.MemberID, "Central Region", false, time.Now())
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)

	other := models.NewEventMember(id.NewEventID(), em.MemberID, "Central Region", false, time.Now())
	s.NoError(s.store.Create(s.ctx, other), "same member may register for another event")
}

func (s *EventMemberStoreSuite) TestLookups() {
	em := s.register("Central Region")

	found, err := s.store.FindByEventAndMember(s.ctx, s.eventID, em.MemberID)
	s.Require().NoError(err)
	s.Equal(em.ID, found.ID)

	_, err = s.store.FindByID(s.ctx, id.NewEventMemberID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	token := "ticket-1"
	found.TicketToken = &token
	s.Require().NoError(s.store.Update(s.ctx, found))

	byTicket, err := s.store.FindByTicketToken(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(em.ID, byTicket.ID)
}

func (s *EventMemberStoreSuite) TestTicketTokenUnique() {
	token := "shared"
	a := s.register("Central Region")
	b := s.register("Central Region")
	a.TicketToken = &token
	s.Require().NoError(s.store.Update(s.ctx, a))
	b.TicketToken = &token
	s.ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrAlreadyUsed)
}

func (s *EventMemberStoreSuite) TestListByEventFilters() {
	a := s.register("Central Region")
	b := s.register("Northern Region")
	c := s.register("Central Region")
	c.Stage = models.StagePreferenceSubmitted
	s.Require().NoError(s.store.Update(s.ctx, c))
	_ = b

	all, err := s.store.ListByEvent(s.ctx, s.eventID, models.Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal(a.ID, all[0].ID, "creation order preserved")

	central, err := s.store.ListByEvent(s.ctx, s.eventID, models.Filter{Region: "Central Region"})
	s.Require().NoError(err)
	s.Len(central, 2)

	submitted, err := s.store.ListByEvent(s.ctx, s.eventID, models.Filter{Stages: []models.Stage{models.StagePreferenceSubmitted}})
	s.Require().NoError(err)
	s.Require().Len(submitted, 1)
	s.Equal(c.ID, submitted[0].ID)

	none, err := s.store.ListByEvent(s.ctx, id.NewEventID(), models.Filter{})
	s.Require().NoError(err)
	s.Empty(none)
}
