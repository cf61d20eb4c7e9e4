package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store (household, voucher, pending code)
// - ErrConflict: uniqueness violated (voucher code, pending code, household ID)
// - ErrExpired: pending redemption request past its TTL
// - ErrInsufficient: fewer active vouchers available than requested
// - ErrInvalidState: entity in wrong state for requested operation (e.g. voucher already redeemed)
// - ErrUnavailable: backing store temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInsufficient = errors.New("insufficient")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
