// Package store persists the household directory.
//
// Error contract, shared by all implementations:
//   - Create returns sentinel.ErrConflict (wrapped) when the ID is taken.
//   - Get returns sentinel.ErrNotFound (wrapped) when the household is absent.
//   - Update returns sentinel.ErrNotFound (wrapped) when the household is absent.
//   - Infrastructure failures are returned wrapped with context.
package store

import (
	"context"

	"voucher-ledger/internal/household/models"
)

// Store is the household directory the allocator and settlement consult.
//
// GetForUpdate reads the household for mutation inside the caller's
// transaction scope. SQL implementations take a row lock, so two transactions
// reading the same household's claims serialize instead of both observing the
// pre-claim state.
type Store interface {
	Create(ctx context.Context, h *models.Household) error
	Get(ctx context.Context, id string) (*models.Household, error)
	GetForUpdate(ctx context.Context, id string) (*models.Household, error)
	Update(ctx context.Context, h *models.Household) error
	Exists(ctx context.Context, id string) (bool, error)
}
