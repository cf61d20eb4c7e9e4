package store

import (
	"context"
	"sort"
	"sync"

	"voucher-ledger/internal/settlement/models"
)

// InMemory stores redemption history in memory for tests and single-node
// development.
type InMemory struct {
	mu           sync.RWMutex
	transactions map[string][]*models.RedemptionTransaction
}

// NewInMemory constructs an empty in-memory history store.
func NewInMemory() *InMemory {
	return &InMemory{transactions: make(map[string][]*models.RedemptionTransaction)}
}

func (s *InMemory) Append(_ context.Context, tx *models.RedemptionTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *tx
	dup.Vouchers = append([]models.ConsumedVoucher(nil), tx.Vouchers...)
	s.transactions[tx.HouseholdID] = append(s.transactions[tx.HouseholdID], &dup)
	return nil
}

func (s *InMemory) ListByHousehold(_ context.Context, householdID string) ([]*models.RedemptionTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]*models.RedemptionTransaction, 0, len(s.transactions[householdID]))
	for _, tx := range s.transactions[householdID] {
		dup := *tx
		dup.Vouchers = append([]models.ConsumedVoucher(nil), tx.Vouchers...)
		history = append(history, &dup)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	return history, nil
}
