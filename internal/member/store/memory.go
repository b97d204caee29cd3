package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"unionhub/internal/member/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
)

// InMemory keeps members and financial forms in maps guarded by one lock.
type InMemory struct {
	mu        sync.RWMutex
	members   map[id.MemberID]*models.Member
	byNumber  map[string]id.MemberID
	byToken   map[string]id.MemberID
	forms     map[uuid.UUID]*models.FinancialForm
	formOrder []uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		members:  make(map[id.MemberID]*models.Member),
		byNumber: make(map[string]id.MemberID),
		byToken:  make(map[string]id.MemberID),
		forms:    make(map[uuid.UUID]*models.FinancialForm),
	}
}

func (s *InMemory) Create(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byNumber[m.MembershipNumber]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.members[m.ID] = m.Clone()
	s.byNumber[m.MembershipNumber] = m.ID
	s.byToken[m.Token] = m.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.members[m.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.MembershipNumber != m.MembershipNumber {
		if _, taken := s.byNumber[m.MembershipNumber]; taken {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.byNumber, current.MembershipNumber)
		s.byNumber[m.MembershipNumber] = m.ID
	}
	s.members[m.ID] = m.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, memberID id.MemberID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *InMemory) FindByMembershipNumber(_ context.Context, number string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	memberID, ok := s.byNumber[strings.TrimSpace(number)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.members[memberID].Clone(), nil
}

func (s *InMemory) FindByToken(_ context.Context, token string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	memberID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.members[memberID].Clone(), nil
}

// List returns members ordered by membership number.
func (s *InMemory) List(_ context.Context, f models.Filter) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*models.Member, 0, len(s.members))
	for _, m := range s.members {
		if f.Region != "" && m.Region != f.Region {
			continue
		}
		if f.DataSource != "" && m.DataSource != f.DataSource {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(m.MembershipNumber, search) {
			continue
		}
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MembershipNumber < out[j].MembershipNumber })
	return paginate(out, f.Offset, f.Limit), nil
}

func (s *InMemory) CreateForm(_ context.Context, form *models.FinancialForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *form
	s.forms[form.ID] = &c
	s.formOrder = append(s.formOrder, form.ID)
	return nil
}

func (s *InMemory) UpdateFormSync(_ context.Context, formID uuid.UUID, status models.SyncStatus, syncErr string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.forms[formID]
	if !ok {
		return sentinel.ErrNotFound
	}
	form.SyncStatus = status
	form.SyncError = syncErr
	form.SyncedAt = &at
	return nil
}

// ListForms returns a member's forms, newest first.
func (s *InMemory) ListForms(_ context.Context, memberID id.MemberID) ([]*models.FinancialForm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.FinancialForm
	for i := len(s.formOrder) - 1; i >= 0; i-- {
		form := s.forms[s.formOrder[i]]
		if form.MemberID == memberID {
			c := *form
			out = append(out, &c)
		}
	}
	return out, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
