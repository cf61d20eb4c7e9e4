package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voucher-ledger/internal/pending"
	"voucher-ledger/pkg/platform/sentinel"
)

const redisKeyPrefix = "pending:code:"

// Redis stores pending requests under TTL-bearing keys, the recommended
// backend when multiple instances share one exchange. Key expiry handles the
// bulk of cleanup; the exchange still applies its lazy expiry check so the
// cutover instant is identical across backends.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed pending store.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Put(ctx context.Context, req *pending.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal pending request: %w", err)
	}
	// SET NX is the collision check: an existing unexpired code refuses the put.
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+req.Code, payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("put pending request: %w", err)
	}
	if !ok {
		return fmt.Errorf("redemption code %s: %w", req.Code, sentinel.ErrConflict)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, code string) (*pending.Request, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pending request: %w", err)
	}
	var req pending.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("unmarshal pending request: %w", err)
	}
	return &req, nil
}

func (s *Redis) Take(ctx context.Context, code string) (*pending.Request, error) {
	// GETDEL removes the key in the same command, so concurrent takes of one
	// code resolve to a single winner even across instances.
	payload, err := s.client.GetDel(ctx, redisKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("take pending request: %w", err)
	}
	var req pending.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("unmarshal pending request: %w", err)
	}
	return &req, nil
}

func (s *Redis) Delete(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("delete pending request: %w", err)
	}
	return nil
}
