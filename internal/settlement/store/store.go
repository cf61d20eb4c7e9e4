// Package store persists the queryable redemption history. Records are
// append-only; nothing updates or deletes a settled transaction.
package store

import (
	"context"

	"voucher-ledger/internal/settlement/models"
)

// Store is the per-household redemption history.
type Store interface {
	Append(ctx context.Context, tx *models.RedemptionTransaction) error
	// ListByHousehold returns transactions most recent first.
	ListByHousehold(ctx context.Context, householdID string) ([]*models.RedemptionTransaction, error)
}
