package store

import (
	"context"
	"sort"
	"sync"

	"unionhub/internal/notification/models"
	"unionhub/pkg/platform/sentinel"
)

// InMemory keeps templates and the delivery log in process memory.
type InMemory struct {
	mu        sync.RWMutex
	templates map[string][]*models.Template
	logs      []*models.Log
}

func NewInMemory() *InMemory {
	return &InMemory{templates: make(map[string][]*models.Template)}
}

// CreateTemplate stores a new version. Versions of a code are unique.
func (s *InMemory) CreateTemplate(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.templates[t.Code] {
		if existing.Version == t.Version {
			return sentinel.ErrAlreadyUsed
		}
	}
	c := *t
	s.templates[t.Code] = append(s.templates[t.Code], &c)
	return nil
}

// LatestTemplate returns the highest active version of code.
func (s *InMemory) LatestTemplate(_ context.Context, code string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := latestActive(s.templates[code])
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	c := *latest
	return &c, nil
}

// ListLatestTemplates returns the latest active version of every code, by code.
func (s *InMemory) ListLatestTemplates(_ context.Context) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, versions := range s.templates {
		if latest := latestActive(versions); latest != nil {
			c := *latest
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func latestActive(versions []*models.Template) *models.Template {
	var latest *models.Template
	for _, t := range versions {
		if t.IsActive && (latest == nil || t.Version > latest.Version) {
			latest = t
		}
	}
	return latest
}

// AppendLog records one delivery attempt.
func (s *InMemory) AppendLog(_ context.Context, l *models.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *l
	s.logs = append(s.logs, &c)
	return nil
}

// ListLogs returns matching attempts, newest first.
func (s *InMemory) ListLogs(_ context.Context, f models.LogFilter) ([]*models.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		if !f.Matches(s.logs[i]) {
			continue
		}
		c := *s.logs[i]
		out = append(out, &c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
