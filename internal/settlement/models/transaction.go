package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	vouchermodels "voucher-ledger/internal/voucher/models"
)

// ConsumedVoucher records one voucher spent by a settlement.
type ConsumedVoucher struct {
	Code         string                     `json:"voucher_code"`
	Denomination vouchermodels.Denomination `json:"denomination"`
}

// RedemptionTransaction is the immutable record of one successful settlement.
// Created exactly once per confirm call; appended to per-household history and
// projected into the hourly audit CSV.
type RedemptionTransaction struct {
	ID          string            `json:"transaction_id"`
	HouseholdID string            `json:"household_id"`
	MerchantID  string            `json:"merchant_id"`
	Total       int               `json:"total"`
	Vouchers    []ConsumedVoucher `json:"vouchers"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionID generates a settlement transaction ID of the shape
// TX<10 hex chars>.
func NewTransactionID() string {
	return "TX" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
