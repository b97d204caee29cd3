package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"unionhub/internal/event/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
)

// InMemory stores events and templates.
type InMemory struct {
	mu             sync.RWMutex
	events         map[id.EventID]*models.Event
	templates      map[uuid.UUID]*models.EventTemplate
	templateByName map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		events:         make(map[id.EventID]*models.Event),
		templates:      make(map[uuid.UUID]*models.EventTemplate),
		templateByName: make(map[string]uuid.UUID),
	}
}

// CreateTemplateIfAbsent inserts t unless a template with the same name exists.
func (s *InMemory) CreateTemplateIfAbsent(_ context.Context, t *models.EventTemplate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templateByName[t.Name]; ok {
		return false, nil
	}
	s.templates[t.ID] = t.Clone()
	s.templateByName[t.Name] = t.ID
	return true, nil
}

func (s *InMemory) FindTemplateByID(_ context.Context, templateID uuid.UUID) (*models.EventTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[templateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *InMemory) FindTemplateByName(_ context.Context, name string) (*models.EventTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	templateID, ok := s.templateByName[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.templates[templateID].Clone(), nil
}

func (s *InMemory) ListTemplates(_ context.Context) ([]*models.EventTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.EventTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.events[e.ID] = e.Clone()
	return nil
}

func (s *InMemory) UpdateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.events[e.ID] = e.Clone()
	return nil
}

func (s *InMemory) FindEventByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.Clone(), nil
}

// ListEvents returns events newest first.
func (s *InMemory) ListEvents(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
