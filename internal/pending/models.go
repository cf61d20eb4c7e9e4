// Package pending implements the short-lived handoff between a household
// staging a redemption and the merchant confirming it. Entries live under a
// one-time human-typeable code, expire after a fixed TTL evaluated lazily at
// claim time, and are removed when a confirm claims them. They are never
// mutated.
package pending

import (
	"crypto/rand"
	"fmt"
	"time"

	vouchermodels "voucher-ledger/internal/voucher/models"
)

// Request is a staged redemption waiting for a merchant to confirm it.
type Request struct {
	Code        string                             `json:"code"`
	HouseholdID string                             `json:"household_id"`
	Selections  map[vouchermodels.Denomination]int `json:"selections"`
	Total       int                                `json:"total"`
	CreatedAt   time.Time                          `json:"created_at"`
}

// ExpiresAt returns the instant the request stops being resolvable.
func (r *Request) ExpiresAt(ttl time.Duration) time.Time {
	return r.CreatedAt.Add(ttl)
}

// Expired reports whether the request is past its TTL at now.
func (r *Request) Expired(ttl time.Duration, now time.Time) bool {
	return now.After(r.ExpiresAt(ttl))
}

// Clone returns a deep copy so stores never hand out aliased selection maps.
func (r *Request) Clone() *Request {
	dup := *r
	dup.Selections = make(map[vouchermodels.Denomination]int, len(r.Selections))
	for d, q := range r.Selections {
		dup.Selections[d] = q
	}
	return &dup
}

// codeAlphabet excludes 0/O and 1/I; codes are read off a phone screen and
// typed at a merchant terminal.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// NewCode generates a random redemption code. Collisions are possible at this
// length; callers retry on a store conflict.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate redemption code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
