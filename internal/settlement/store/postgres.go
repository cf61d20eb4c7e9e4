package store

import (
	"context"
	"database/sql"
	"fmt"

	"voucher-ledger/internal/settlement/models"
	vouchermodels "voucher-ledger/internal/voucher/models"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists redemption history in PostgreSQL: one transaction row plus
// one consumed-voucher row per spent voucher, position preserving spend order.
type Postgres struct {
	q querier
}

// NewPostgres constructs a PostgreSQL-backed history store on a pool.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// NewPostgresTx constructs a history store bound to an open transaction, so
// the history append commits or rolls back with the voucher mutations.
func NewPostgresTx(tx *sql.Tx) *Postgres { return &Postgres{q: tx} }

func (s *Postgres) Append(ctx context.Context, tx *models.RedemptionTransaction) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO redemption_transactions (id, household_id, merchant_id, total, settled_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tx.ID, tx.HouseholdID, tx.MerchantID, tx.Total, tx.Timestamp)
	if err != nil {
		return fmt.Errorf("append redemption transaction: %w", err)
	}
	for i, consumed := range tx.Vouchers {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO redemption_vouchers (transaction_id, position, voucher_code, denomination)
			VALUES ($1, $2, $3, $4)
		`, tx.ID, i, consumed.Code, int(consumed.Denomination))
		if err != nil {
			return fmt.Errorf("append consumed voucher: %w", err)
		}
	}
	return nil
}

func (s *Postgres) ListByHousehold(ctx context.Context, householdID string) ([]*models.RedemptionTransaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, household_id, merchant_id, total, settled_at
		FROM redemption_transactions
		WHERE household_id = $1
		ORDER BY settled_at DESC, id
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list redemption history: %w", err)
	}
	defer rows.Close()

	var (
		history []*models.RedemptionTransaction
		index   = map[string]*models.RedemptionTransaction{}
		ids     []string
	)
	for rows.Next() {
		var tx models.RedemptionTransaction
		if err := rows.Scan(&tx.ID, &tx.HouseholdID, &tx.MerchantID, &tx.Total, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan redemption transaction: %w", err)
		}
		history = append(history, &tx)
		index[tx.ID] = &tx
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan redemption history: %w", err)
	}
	if len(ids) == 0 {
		return history, nil
	}

	voucherRows, err := s.q.QueryContext(ctx, `
		SELECT transaction_id, voucher_code, denomination
		FROM redemption_vouchers
		WHERE transaction_id = ANY($1)
		ORDER BY transaction_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list consumed vouchers: %w", err)
	}
	defer voucherRows.Close()
	for voucherRows.Next() {
		var (
			txID  string
			code  string
			denom int
		)
		if err := voucherRows.Scan(&txID, &code, &denom); err != nil {
			return nil, fmt.Errorf("scan consumed voucher: %w", err)
		}
		if tx, ok := index[txID]; ok {
			tx.Vouchers = append(tx.Vouchers, models.ConsumedVoucher{
				Code:         code,
				Denomination: vouchermodels.Denomination(denom),
			})
		}
	}
	if err := voucherRows.Err(); err != nil {
		return nil, fmt.Errorf("scan consumed vouchers: %w", err)
	}
	return history, nil
}
