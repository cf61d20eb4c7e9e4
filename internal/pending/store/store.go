// Package store persists pending redemption requests.
//
// Error contract: Put returns sentinel.ErrConflict (wrapped) when the code is
// taken, Get returns sentinel.ErrNotFound (wrapped) when absent, and Delete
// of an absent code is a no-op. TTL interpretation belongs to the exchange
// service; stores only honor it where their medium requires it (redis key
// expiry, file compaction).
package store

import (
	"context"

	"voucher-ledger/internal/pending"
)

// Store holds staged redemption requests keyed by one-time code.
type Store interface {
	Put(ctx context.Context, req *pending.Request) error
	Get(ctx context.Context, code string) (*pending.Request, error)
	Delete(ctx context.Context, code string) error
}
