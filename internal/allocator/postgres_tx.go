package allocator

import (
	"context"
	"database/sql"
	"time"

	householdstore "voucher-ledger/internal/household/store"
	voucherstore "voucher-ledger/internal/voucher/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

// defaultPostgresTxTimeout bounds a single issuance transaction.
const defaultPostgresTxTimeout = 5 * time.Second

// postgresTx runs an issuance inside one database transaction: the claim
// check, the voucher inserts, and the claim flip share the household row lock.
type postgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresTx builds the PostgreSQL transaction runner on a pool.
func NewPostgresTx(db *sql.DB) Tx {
	return &postgresTx{db: db}
}

func (t *postgresTx) RunInTx(ctx context.Context, fn func(stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPostgresTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(Stores{
		Households: householdstore.NewPostgresTx(tx),
		Vouchers:   voucherstore.NewPostgresTx(tx),
	}); err != nil {
		return err
	}
	return tx.Commit()
}
