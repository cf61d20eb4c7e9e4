package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voucher-ledger/pkg/platform/sentinel"
)

// Denomination is the fixed face value of a voucher in whole dollars.
type Denomination int

func (d Denomination) Valid() bool { return d > 0 }

// Money renders a denomination-domain amount in the settlement file format.
// Denominations are whole dollars, so the two-decimal rendering is exact.
func Money(amount int) string {
	return fmt.Sprintf("$%d.00", amount)
}

// Status is the voucher lifecycle state. A voucher moves Active -> Redeemed
// exactly once and never back.
type Status string

const (
	StatusActive   Status = "Active"
	StatusRedeemed Status = "Redeemed"
)

// Voucher is a single fixed-denomination credit owned by a household. The
// ledger owns these records; audit rows reference them by code.
type Voucher struct {
	Code         string       `json:"voucher_code"`
	Denomination Denomination `json:"denomination"`
	HouseholdID  string       `json:"household_id"`
	Tranche      string       `json:"tranche"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	RedeemedAt   *time.Time   `json:"redeemed_at,omitempty"`
	RedeemedBy   string       `json:"redeemed_by,omitempty"`
}

// New constructs an Active voucher with a freshly generated code. Callers must
// check the code against the ledger and retry on collision; uniqueness is a
// ledger invariant, not a property of the generator alone.
func New(householdID, tranche string, denom Denomination, now time.Time) (*Voucher, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household id is required")
	}
	if tranche == "" {
		return nil, fmt.Errorf("tranche is required")
	}
	if !denom.Valid() {
		return nil, fmt.Errorf("denomination must be positive, got %d", denom)
	}
	return &Voucher{
		Code:         NewCode(householdID, tranche),
		Denomination: denom,
		HouseholdID:  householdID,
		Tranche:      tranche,
		Status:       StatusActive,
		CreatedAt:    now,
	}, nil
}

// NewCode derives a voucher code from the owner, the tranche, and a random
// suffix: V-<householdID>-<first 3 tranche chars>-<6 hex chars>.
func NewCode(householdID, tranche string) string {
	prefix := tranche
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("V-%s-%s-%s", householdID, strings.ToUpper(prefix), suffix)
}

// Redeem transitions the voucher to Redeemed. Redeeming anything but an
// Active voucher is an invariant violation.
func (v *Voucher) Redeem(merchantID string, at time.Time) error {
	if v.Status != StatusActive {
		return fmt.Errorf("voucher %s is %s: %w", v.Code, v.Status, sentinel.ErrInvalidState)
	}
	v.Status = StatusRedeemed
	v.RedeemedAt = &at
	v.RedeemedBy = merchantID
	return nil
}
