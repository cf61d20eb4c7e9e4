package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the merchant registration state. Only Active merchants may settle
// redemptions.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

var (
	errInvalidBankName   = errors.New("bank_name does not exist")
	errInvalidBankCode   = errors.New("bank_code does not match bank_name")
	errInvalidBranchCode = errors.New("branch_code does not match bank_name and bank_code")
)

// Merchant is a registered redemption point with the payout details
// reimbursement needs.
type Merchant struct {
	ID                string    `json:"merchant_id"`
	Name              string    `json:"merchant_name"`
	UEN               string    `json:"uen"`
	BankName          string    `json:"bank_name"`
	BankCode          string    `json:"bank_code"`
	BranchCode        string    `json:"branch_code"`
	BranchName        string    `json:"branch_name"`
	AccountNumber     string    `json:"account_number"`
	AccountHolderName string    `json:"account_holder_name"`
	RegistrationDate  time.Time `json:"registration_date"`
	Status            Status    `json:"status"`
}

// Registration carries the caller-supplied fields of a merchant registration.
type Registration struct {
	Name              string `json:"merchant_name"`
	UEN               string `json:"uen"`
	BankName          string `json:"bank_name"`
	BankCode          string `json:"bank_code"`
	BranchCode        string `json:"branch_code"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
	Status            string `json:"status"`
}

// New validates a registration and constructs a Merchant with a generated ID.
// Bank details are checked against the reference table; the resolved branch
// name is recorded on the merchant.
func New(reg Registration, now time.Time) (*Merchant, error) {
	if err := reg.validateRequired(); err != nil {
		return nil, err
	}

	status := Status(strings.ToLower(reg.Status))
	switch status {
	case StatusActive, StatusPending, StatusSuspended:
	default:
		return nil, fmt.Errorf("invalid status %q", reg.Status)
	}

	if !isDigits(reg.AccountNumber) {
		return nil, fmt.Errorf("account_number must contain digits only")
	}
	if n := len(reg.AccountNumber); n < 6 || n > 20 {
		return nil, fmt.Errorf("account_number must be between 6 and 20 digits")
	}

	branchName, err := ResolveBranch(reg.BankName, reg.BankCode, reg.BranchCode)
	if err != nil {
		return nil, err
	}

	return &Merchant{
		ID:                NewID(),
		Name:              reg.Name,
		UEN:               reg.UEN,
		BankName:          reg.BankName,
		BankCode:          reg.BankCode,
		BranchCode:        reg.BranchCode,
		BranchName:        branchName,
		AccountNumber:     reg.AccountNumber,
		AccountHolderName: reg.AccountHolderName,
		RegistrationDate:  now,
		Status:            status,
	}, nil
}

// NewID generates a merchant ID of the shape M-<10 hex chars>.
func NewID() string {
	return "M-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// IsActive reports whether the merchant may settle redemptions.
func (m *Merchant) IsActive() bool { return m.Status == StatusActive }

func (r Registration) validateRequired() error {
	missing := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("missing required field %s", field)
		}
		return nil
	}
	checks := []error{
		missing("merchant_name", r.Name),
		missing("uen", r.UEN),
		missing("bank_name", r.BankName),
		missing("bank_code", r.BankCode),
		missing("branch_code", r.BranchCode),
		missing("account_number", r.AccountNumber),
		missing("account_holder_name", r.AccountHolderName),
		missing("status", r.Status),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
