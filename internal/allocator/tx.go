package allocator

import (
	"context"
	"sync"
	"time"

	domainerrors "voucher-ledger/pkg/domain-errors"
)

// numShards spreads in-memory issuance locks across households so unrelated
// households never contend. Must be a power of two.
const numShards = 32

// defaultTxTimeout bounds a single issuance.
const defaultTxTimeout = 5 * time.Second

// memoryTx serializes issuances per household with sharded mutexes. It is
// the in-memory stand-in for a database transaction: the claim check, the
// voucher inserts, and the claim flip run under one shard lock.
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

// fnvHash is FNV-1a, chosen for its distribution over short IDs.
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
