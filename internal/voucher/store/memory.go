package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"voucher-ledger/internal/voucher/models"
	"voucher-ledger/pkg/platform/sentinel"
)

// InMemory stores vouchers in memory for tests and single-node development.
// Cross-call atomicity (acquire then mark) comes from the service tx runner's
// lock; each individual call is safe on its own.
type InMemory struct {
	mu       sync.RWMutex
	vouchers map[string]*models.Voucher
}

// NewInMemory constructs an empty in-memory voucher ledger.
func NewInMemory() *InMemory {
	return &InMemory{vouchers: make(map[string]*models.Voucher)}
}

func (s *InMemory) Insert(_ context.Context, v *models.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(v)
}

func (s *InMemory) InsertBatch(_ context.Context, vouchers []*models.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vouchers {
		if _, ok := s.vouchers[v.Code]; ok {
			return fmt.Errorf("voucher code %s: %w", v.Code, sentinel.ErrConflict)
		}
	}
	for _, v := range vouchers {
		if err := s.insertLocked(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemory) insertLocked(v *models.Voucher) error {
	if _, ok := s.vouchers[v.Code]; ok {
		return fmt.Errorf("voucher code %s: %w", v.Code, sentinel.ErrConflict)
	}
	dup := *v
	s.vouchers[v.Code] = &dup
	return nil
}

func (s *InMemory) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vouchers[code]
	return ok, nil
}

func (s *InMemory) ActiveByHousehold(_ context.Context, householdID string) ([]*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*models.Voucher
	for _, v := range s.vouchers {
		if v.HouseholdID == householdID && v.Status == models.StatusActive {
			dup := *v
			active = append(active, &dup)
		}
	}
	sortVouchers(active)
	return active, nil
}

func (s *InMemory) AcquireActive(_ context.Context, householdID string, denom models.Denomination, quantity int) ([]*models.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []*models.Voucher
	for _, v := range s.vouchers {
		if v.HouseholdID == householdID && v.Denomination == denom && v.Status == models.StatusActive {
			dup := *v
			candidates = append(candidates, &dup)
		}
	}
	if len(candidates) < quantity {
		return nil, fmt.Errorf("%d active vouchers of denomination %d, need %d: %w",
			len(candidates), denom, quantity, sentinel.ErrInsufficient)
	}
	sortVouchers(candidates)
	return candidates[:quantity], nil
}

func (s *InMemory) MarkRedeemed(_ context.Context, codes []string, merchantID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate first so a bad code leaves nothing half-redeemed.
	for _, code := range codes {
		v, ok := s.vouchers[code]
		if !ok {
			return fmt.Errorf("voucher %s: %w", code, sentinel.ErrNotFound)
		}
		if v.Status != models.StatusActive {
			return fmt.Errorf("voucher %s is %s: %w", code, v.Status, sentinel.ErrInvalidState)
		}
	}
	for _, code := range codes {
		if err := s.vouchers[code].Redeem(merchantID, at); err != nil {
			return err
		}
	}
	return nil
}

// sortVouchers orders by creation time then code, the ledger's deterministic
// selection order.
func sortVouchers(vouchers []*models.Voucher) {
	sort.Slice(vouchers, func(i, j int) bool {
		if !vouchers[i].CreatedAt.Equal(vouchers[j].CreatedAt) {
			return vouchers[i].CreatedAt.Before(vouchers[j].CreatedAt)
		}
		return vouchers[i].Code < vouchers[j].Code
	})
}
