package settlement

import (
	"context"
	"sync"
	"time"

	domainerrors "voucher-ledger/pkg/domain-errors"
)

// numShards spreads in-memory settlement locks across households. Two
// confirms for the same household always share a shard, which is what makes
// acquire-then-mark atomic against the double-spend race.
const numShards = 32

// defaultTxTimeout bounds a single settlement.
const defaultTxTimeout = 5 * time.Second

type memoryTx struct {
	shards  [numShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

// NewMemoryTx builds the in-memory transaction runner over the given stores.
func NewMemoryTx(stores Stores) Tx {
	return &memoryTx{stores: stores}
}

func (t *memoryTx) RunInTx(ctx context.Context, fn func(stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(t.stores)
}

type txHouseholdKey struct{}

func withTxHousehold(ctx context.Context, householdID string) context.Context {
	return context.WithValue(ctx, txHouseholdKey{}, householdID)
}

func selectShard(ctx context.Context) int {
	if id, ok := ctx.Value(txHouseholdKey{}).(string); ok && id != "" {
		return int(fnvHash(id) % numShards)
	}
	return 0
}

func fnvHash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
