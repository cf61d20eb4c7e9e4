//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-ledger/internal/pending"
	vouchermodels "voucher-ledger/internal/voucher/models"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/testutil/containers"
)

func redisRequest(code string, createdAt time.Time) *pending.Request {
	return &pending.Request{
		Code:        code,
		HouseholdID: "HH001",
		Selections:  map[vouchermodels.Denomination]int{2: 3},
		Total:       6,
		CreatedAt:   createdAt,
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client, time.Hour)

	req := redisRequest("ABCDEF", time.Now().UTC())
	require.NoError(t, store.Put(ctx, req))

	got, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, req.HouseholdID, got.HouseholdID)
	assert.Equal(t, req.Total, got.Total)
	assert.Equal(t, req.Selections, got.Selections)

	require.NoError(t, store.Delete(ctx, "ABCDEF"))
	_, err = store.Get(ctx, "ABCDEF")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisStoreRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client, time.Hour)

	require.NoError(t, store.Put(ctx, redisRequest("ABCDEF", time.Now().UTC())))
	err := store.Put(ctx, redisRequest("ABCDEF", time.Now().UTC()))
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestRedisStoreTakeIsExclusive(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client, time.Hour)

	req := redisRequest("ABCDEF", time.Now().UTC())
	require.NoError(t, store.Put(ctx, req))

	got, err := store.Take(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, req.Total, got.Total)

	// GETDEL removed the key, so a second take loses.
	_, err = store.Take(ctx, "ABCDEF")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisStoreKeyExpiry(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client, time.Second)

	require.NoError(t, store.Put(ctx, redisRequest("ABCDEF", time.Now().UTC())))

	require.Eventually(t, func() bool {
		_, err := store.Get(ctx, "ABCDEF")
		return err != nil
	}, 5*time.Second, 200*time.Millisecond)
}

func TestRedisStoreDeleteAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client, time.Hour)
	require.NoError(t, store.Delete(ctx, "ZZZZZZ"))
}
