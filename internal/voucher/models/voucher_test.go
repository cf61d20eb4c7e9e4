package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-ledger/pkg/platform/sentinel"
)

func TestNewVoucher(t *testing.T) {
	now := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)

	v, err := New("HH001", "May_2025", 10, now)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, Denomination(10), v.Denomination)
	assert.Equal(t, "HH001", v.HouseholdID)
	assert.Equal(t, "May_2025", v.Tranche)
	assert.Equal(t, now, v.CreatedAt)
	assert.Nil(t, v.RedeemedAt)
}

func TestNewVoucherValidation(t *testing.T) {
	now := time.Now()

	_, err := New("", "May_2025", 10, now)
	require.Error(t, err)

	_, err = New("HH001", "", 10, now)
	require.Error(t, err)

	_, err = New("HH001", "May_2025", 0, now)
	require.Error(t, err)

	_, err = New("HH001", "May_2025", -5, now)
	require.Error(t, err)
}

func TestNewCodeShape(t *testing.T) {
	code := NewCode("HH001", "May_2025")

	parts := strings.Split(code, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "V", parts[0])
	assert.Equal(t, "HH001", parts[1])
	assert.Equal(t, "MAY", parts[2])
	assert.Len(t, parts[3], 6)
	assert.Equal(t, strings.ToUpper(parts[3]), parts[3])
}

func TestRedeemTransitionsOnce(t *testing.T) {
	now := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	v, err := New("HH001", "May_2025", 5, now)
	require.NoError(t, err)

	redeemedAt := now.Add(time.Hour)
	require.NoError(t, v.Redeem("M-ABC", redeemedAt))
	assert.Equal(t, StatusRedeemed, v.Status)
	assert.Equal(t, "M-ABC", v.RedeemedBy)
	require.NotNil(t, v.RedeemedAt)
	assert.Equal(t, redeemedAt, *v.RedeemedAt)

	err = v.Redeem("M-OTHER", redeemedAt.Add(time.Minute))
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
	assert.Equal(t, "M-ABC", v.RedeemedBy)
}

func TestMoneyFormat(t *testing.T) {
	assert.Equal(t, "$2.00", Money(2))
	assert.Equal(t, "$10.00", Money(10))
	assert.Equal(t, "$500.00", Money(500))
}
