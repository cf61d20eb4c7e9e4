package store

import (
	"context"
	"fmt"
	"sync"

	"voucher-ledger/internal/household/models"
	"voucher-ledger/pkg/platform/sentinel"
)

// InMemory stores households in memory for tests and single-node development.
type InMemory struct {
	mu         sync.RWMutex
	households map[string]*models.Household
}

// NewInMemory constructs an empty in-memory household store.
func NewInMemory() *InMemory {
	return &InMemory{households: make(map[string]*models.Household)}
}

func (s *InMemory) Create(_ context.Context, h *models.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[h.ID]; ok {
		return fmt.Errorf("household %s already registered: %w", h.ID, sentinel.ErrConflict)
	}
	s.households[h.ID] = h.Clone()
	return nil
}

func (s *InMemory) Get(_ context.Context, id string) (*models.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.households[id]; ok {
		return h.Clone(), nil
	}
	return nil, fmt.Errorf("household %s: %w", id, sentinel.ErrNotFound)
}

// GetForUpdate is a plain read here; the allocator's in-memory transaction
// runner already serializes mutations per household.
func (s *InMemory) GetForUpdate(ctx context.Context, id string) (*models.Household, error) {
	return s.Get(ctx, id)
}

func (s *InMemory) Update(_ context.Context, h *models.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[h.ID]; !ok {
		return fmt.Errorf("household %s: %w", h.ID, sentinel.ErrNotFound)
	}
	s.households[h.ID] = h.Clone()
	return nil
}

func (s *InMemory) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.households[id]
	return ok, nil
}
