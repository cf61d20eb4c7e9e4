package auditlog

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher-ledger/internal/settlement/models"
)

func sampleTransaction(id string, at time.Time, codes ...string) *models.RedemptionTransaction {
	vouchers := make([]models.ConsumedVoucher, len(codes))
	total := 0
	for i, code := range codes {
		vouchers[i] = models.ConsumedVoucher{Code: code, Denomination: 5}
		total += 5
	}
	return &models.RedemptionTransaction{
		ID:          id,
		HouseholdID: "HH001",
		MerchantID:  "M-ABC123",
		Total:       total,
		Vouchers:    vouchers,
		Timestamp:   at,
	}
}

func readBucket(t *testing.T, dir string, tx *models.RedemptionTransaction) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, BucketName(tx)))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestBucketNameFloorsToHour(t *testing.T) {
	at := time.Date(2025, 5, 12, 14, 59, 58, 0, time.UTC)
	tx := sampleTransaction("TX1", at, "V-A")
	assert.Equal(t, "Redeem2025051214.csv", BucketName(tx))
}

func TestAppendWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	at := time.Date(2025, 5, 12, 14, 30, 15, 0, time.UTC)
	tx := sampleTransaction("TX1", at, "V-A", "V-B", "V-C")

	require.NoError(t, w.Append(context.Background(), tx))

	rows := readBucket(t, dir, tx)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])

	for i, row := range rows[1:] {
		assert.Equal(t, "TX1", row[0])
		assert.Equal(t, "HH001", row[1])
		assert.Equal(t, "M-ABC123", row[2])
		assert.Equal(t, "2025-05-12-143015", row[3])
		assert.Equal(t, tx.Vouchers[i].Code, row[4])
		assert.Equal(t, "$5.00", row[5])
		assert.Equal(t, "$15.00", row[6])
		assert.Equal(t, "Completed", row[7])
	}
	assert.Equal(t, "1", rows[1][8])
	assert.Equal(t, "2", rows[2][8])
	assert.Equal(t, FinalRemark, rows[3][8])
}

func TestAppendWritesHeaderOncePerBucket(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	at := time.Date(2025, 5, 12, 14, 0, 0, 0, time.UTC)

	require.NoError(t, w.Append(context.Background(), sampleTransaction("TX1", at, "V-A")))
	require.NoError(t, w.Append(context.Background(), sampleTransaction("TX2", at.Add(20*time.Minute), "V-B")))

	rows := readBucket(t, dir, sampleTransaction("TX1", at, "V-A"))
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "TX1", rows[1][0])
	assert.Equal(t, "TX2", rows[2][0])
}

func TestAppendSplitsAcrossHourBuckets(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	first := sampleTransaction("TX1", time.Date(2025, 5, 12, 14, 59, 0, 0, time.UTC), "V-A")
	second := sampleTransaction("TX2", time.Date(2025, 5, 12, 15, 1, 0, 0, time.UTC), "V-B")

	require.NoError(t, w.Append(context.Background(), first))
	require.NoError(t, w.Append(context.Background(), second))

	assert.Len(t, readBucket(t, dir, first), 2)
	assert.Len(t, readBucket(t, dir, second), 2)
}

func TestAppendSingleVoucherGetsFinalRemark(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	tx := sampleTransaction("TX1", time.Date(2025, 5, 12, 14, 0, 0, 0, time.UTC), "V-A")

	require.NoError(t, w.Append(context.Background(), tx))

	rows := readBucket(t, dir, tx)
	require.Len(t, rows, 2)
	assert.Equal(t, FinalRemark, rows[1][8])
}

func TestAppendRejectsEmptyTransaction(t *testing.T) {
	w := NewWriter(t.TempDir())
	tx := sampleTransaction("TX1", time.Now())
	require.Error(t, w.Append(context.Background(), tx))
}
