package store

import (
	"context"
	"fmt"
	"sync"

	"voucher-ledger/internal/pending"
	"voucher-ledger/pkg/platform/sentinel"
)

// InMemory stores pending requests in memory for tests and single-node
// development.
type InMemory struct {
	mu       sync.RWMutex
	requests map[string]*pending.Request
}

// NewInMemory constructs an empty in-memory pending store.
func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[string]*pending.Request)}
}

func (s *InMemory) Put(_ context.Context, req *pending.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.Code]; ok {
		return fmt.Errorf("redemption code %s: %w", req.Code, sentinel.ErrConflict)
	}
	s.requests[req.Code] = req.Clone()
	return nil
}

func (s *InMemory) Get(_ context.Context, code string) (*pending.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if req, ok := s.requests[code]; ok {
		return req.Clone(), nil
	}
	return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
}

func (s *InMemory) Take(_ context.Context, code string) (*pending.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[code]
	if !ok {
		return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
	}
	delete(s.requests, code)
	return req, nil
}

func (s *InMemory) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, code)
	return nil
}
