// Package store persists the merchant directory.
//
// Error contract: Create returns sentinel.ErrConflict (wrapped) on a duplicate
// ID, Get returns sentinel.ErrNotFound (wrapped) for an unknown merchant, and
// infrastructure failures are returned wrapped with context.
package store

import (
	"context"

	"voucher-ledger/internal/merchant/models"
)

// Store is the merchant directory settlement checks against.
type Store interface {
	Create(ctx context.Context, m *models.Merchant) error
	Get(ctx context.Context, id string) (*models.Merchant, error)
}
