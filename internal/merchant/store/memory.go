package store

import (
	"context"
	"fmt"
	"sync"

	"voucher-ledger/internal/merchant/models"
	"voucher-ledger/pkg/platform/sentinel"
)

// InMemory stores merchants in memory for tests and single-node development.
type InMemory struct {
	mu        sync.RWMutex
	merchants map[string]*models.Merchant
}

// NewInMemory constructs an empty in-memory merchant store.
func NewInMemory() *InMemory {
	return &InMemory{merchants: make(map[string]*models.Merchant)}
}

func (s *InMemory) Create(_ context.Context, m *models.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.merchants[m.ID]; ok {
		return fmt.Errorf("merchant %s: %w", m.ID, sentinel.ErrConflict)
	}
	dup := *m
	s.merchants[m.ID] = &dup
	return nil
}

func (s *InMemory) Get(_ context.Context, id string) (*models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.merchants[id]; ok {
		dup := *m
		return &dup, nil
	}
	return nil, fmt.Errorf("merchant %s: %w", id, sentinel.ErrNotFound)
}
