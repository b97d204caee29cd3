package store

import (
	"context"
	"sync"

	"unionhub/internal/auth/models"
	"unionhub/pkg/platform/sentinel"
)

type InMemory struct {
	mu     sync.RWMutex
	admins map[string]*models.Admin
}

func NewInMemory() *InMemory {
	return &InMemory{admins: make(map[string]*models.Admin)}
}

func (s *InMemory) Create(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[a.Username]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c := *a
	s.admins[a.Username] = &c
	return nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *InMemory) RecordLogin(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.admins[a.Username]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.LastLoginAt = a.LastLoginAt
	existing.LastLoginIP = a.LastLoginIP
	existing.LastLoginDevice = a.LastLoginDevice
	return nil
}
