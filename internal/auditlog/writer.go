package auditlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"voucher-ledger/internal/settlement/models"
	vouchermodels "voucher-ledger/internal/voucher/models"
)

// Columns is the fixed audit schema. Downstream reimbursement tooling depends
// on this exact order; never reorder or extend.
var Columns = []string{
	"Transaction_ID",
	"Household_ID",
	"Merchant_ID",
	"Transaction_Date_Time",
	"Voucher_Code",
	"Denomination_Used",
	"Amount_Redeemed",
	"Payment_Status",
	"Remarks",
}

// FinalRemark marks the last row of a transaction so reconciliation can find
// transaction boundaries without a separate grouping key.
const FinalRemark = "Final denomination used"

const timestampLayout = "2006-01-02-150405"

// Writer appends settlement rows to hour-bucketed CSV files under dir. One
// row per consumed voucher; header written exactly once per bucket. The mutex
// serializes appends so concurrent settlements interleave at row granularity,
// never mid-row.
type Writer struct {
	mu  sync.Mutex
	dir string
}

// NewWriter constructs a Writer rooted at dir. The directory is created on
// first append.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// BucketName returns the audit file name for a transaction timestamp:
// Redeem<YYYYMMDDHH>.csv, floor-to-hour.
func BucketName(tx *models.RedemptionTransaction) string {
	return "Redeem" + tx.Timestamp.Format("2006010215") + ".csv"
}

// Append writes one row per voucher consumed by the transaction. The final
// row's Remarks carries FinalRemark; earlier rows carry their 1-based index.
func (w *Writer) Append(ctx context.Context, tx *models.RedemptionTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(tx.Vouchers) == 0 {
		return fmt.Errorf("transaction %s consumed no vouchers", tx.ID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	path := filepath.Join(w.dir, BucketName(tx))
	writeHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeHeader = true
	} else if err != nil {
		return fmt.Errorf("stat audit bucket: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit bucket: %w", err)
	}
	defer f.Close()

	out := csv.NewWriter(f)
	if writeHeader {
		if err := out.Write(Columns); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
	}
	for i, consumed := range tx.Vouchers {
		remark := strconv.Itoa(i + 1)
		if i == len(tx.Vouchers)-1 {
			remark = FinalRemark
		}
		row := []string{
			tx.ID,
			tx.HouseholdID,
			tx.MerchantID,
			tx.Timestamp.Format(timestampLayout),
			consumed.Code,
			vouchermodels.Money(int(consumed.Denomination)),
			vouchermodels.Money(tx.Total),
			"Completed",
			remark,
		}
		if err := out.Write(row); err != nil {
			return fmt.Errorf("write audit row: %w", err)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("flush audit rows: %w", err)
	}
	return f.Sync()
}
