package store

import (
	"context"
	"sort"
	"sync"

	"unionhub/internal/bmm/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
)

type memberKey struct {
	event  id.EventID
	member id.MemberID
}

// InMemory stores registrations and preserves insertion order for listings.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[id.EventMemberID]*models.EventMember
	byMember map[memberKey]id.EventMemberID
	byTicket map[string]id.EventMemberID
	order    []id.EventMemberID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[id.EventMemberID]*models.EventMember),
		byMember: make(map[memberKey]id.EventMemberID),
		byTicket: make(map[string]id.EventMemberID),
	}
}

func (s *InMemory) Create(_ context.Context, em *models.EventMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{em.EventID, em.MemberID}
	if _, ok := s.byMember[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.byID[em.ID] = em.Clone()
	s.byMember[key] = em.ID
	s.order = append(s.order, em.ID)
	if t := em.Ticket(); t != "" {
		s.byTicket[t] = em.ID
	}
	return nil
}

func (s *InMemory) Update(_ context.Context, em *models.EventMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[em.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t := em.Ticket(); t != "" && t != current.Ticket() {
		if other, taken := s.byTicket[t]; taken && other != em.ID {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.byTicket, current.Ticket())
		s.byTicket[t] = em.ID
	}
	s.byID[em.ID] = em.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	em, ok := s.byID[emID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return em.Clone(), nil
}

func (s *InMemory) FindByEventAndMember(_ context.Context, eventID id.EventID, memberID id.MemberID) (*models.EventMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emID, ok := s.byMember[memberKey{eventID, memberID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[emID].Clone(), nil
}

func (s *InMemory) FindByTicketToken(_ context.Context, token string) (*models.EventMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emID, ok := s.byTicket[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[emID].Clone(), nil
}

// ListByEvent returns matching registrations in creation order.
func (s *InMemory) ListByEvent(_ context.Context, eventID id.EventID, f models.Filter) ([]*models.EventMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.EventMember
	for _, emID := range s.order {
		em := s.byID[emID]
		if em.EventID == eventID && f.Matches(em) {
			out = append(out, em.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
