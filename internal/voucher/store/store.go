// Package store persists the voucher ledger, the source of truth for every
// voucher's identity, denomination, owner, and lifecycle state.
//
// Error contract, shared by all implementations:
//   - Insert/InsertBatch return sentinel.ErrConflict (wrapped) on a voucher
//     code collision.
//   - AcquireActive returns sentinel.ErrInsufficient (wrapped) when fewer
//     Active vouchers exist than requested; it never returns redeemed ones.
//   - MarkRedeemed returns sentinel.ErrInvalidState (wrapped) unless every
//     named voucher was Active; the partial update is the caller's
//     transaction to roll back.
//
// AcquireActive and MarkRedeemed are only safe against concurrent callers
// inside a transactional boundary: row locks in PostgreSQL, the service tx
// runner's lock for the in-memory store.
package store

import (
	"context"
	"time"

	"voucher-ledger/internal/voucher/models"
)

// Store is the voucher ledger.
type Store interface {
	Insert(ctx context.Context, v *models.Voucher) error
	InsertBatch(ctx context.Context, vouchers []*models.Voucher) error
	CodeExists(ctx context.Context, code string) (bool, error)

	// ActiveByHousehold lists spendable vouchers in deterministic order
	// (creation time, then code).
	ActiveByHousehold(ctx context.Context, householdID string) ([]*models.Voucher, error)

	// AcquireActive selects exactly quantity Active vouchers of the given
	// denomination for the household, in deterministic order, claiming them
	// against concurrent callers for the duration of the transaction.
	AcquireActive(ctx context.Context, householdID string, denom models.Denomination, quantity int) ([]*models.Voucher, error)

	// MarkRedeemed transitions the named vouchers Active -> Redeemed.
	MarkRedeemed(ctx context.Context, codes []string, merchantID string, at time.Time) error
}
