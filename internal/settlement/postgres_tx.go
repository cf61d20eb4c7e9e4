package settlement

import (
	"context"
	"database/sql"
	"time"

	settlementstore "voucher-ledger/internal/settlement/store"
	voucherstore "voucher-ledger/internal/voucher/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

// defaultPostgresTxTimeout bounds a single settlement transaction.
const defaultPostgresTxTimeout = 5 * time.Second

// postgresTx runs a settlement inside one database transaction: the FOR
// UPDATE selection, the redeem flips, and the history append commit together
// or roll back together.
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
		Vouchers: voucherstore.NewPostgresTx(tx),
		History:  settlementstore.NewPostgresTx(tx),
	}); err != nil {
		return err
	}
	return tx.Commit()
}
