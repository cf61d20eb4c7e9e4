package models

import (
	"fmt"
	"time"
)

// Household is a registered recipient of voucher tranches. The claim map
// tracks which tranches have been issued; only the allocator flips entries,
// and only from false to true.
type Household struct {
	ID        string            `json:"household_id"`
	Info      map[string]string `json:"info,omitempty"`
	Claims    map[string]bool   `json:"claims"`
	CreatedAt time.Time         `json:"created_at"`
}

// New constructs a household with an unclaimed entry per known tranche.
func New(id string, info map[string]string, tranches []string, now time.Time) (*Household, error) {
	if id == "" {
		return nil, fmt.Errorf("household id is required")
	}
	claims := make(map[string]bool, len(tranches))
	for _, tranche := range tranches {
		claims[tranche] = false
	}
	return &Household{
		ID:        id,
		Info:      info,
		Claims:    claims,
		CreatedAt: now,
	}, nil
}

// CanClaim reports whether the tranche is known to this household and still
// unclaimed.
func (h *Household) CanClaim(tranche string) bool {
	claimed, ok := h.Claims[tranche]
	return ok && !claimed
}

// MarkClaimed records the tranche as issued.
func (h *Household) MarkClaimed(tranche string) {
	if h.Claims == nil {
		h.Claims = map[string]bool{}
	}
	h.Claims[tranche] = true
}

// Clone returns a deep copy so in-memory stores never hand out aliased maps.
func (h *Household) Clone() *Household {
	dup := *h
	dup.Info = make(map[string]string, len(h.Info))
	for k, v := range h.Info {
		dup.Info[k] = v
	}
	dup.Claims = make(map[string]bool, len(h.Claims))
	for k, v := range h.Claims {
		dup.Claims[k] = v
	}
	return &dup
}
