package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"voucher-ledger/internal/voucher/models"
	"voucher-ledger/pkg/platform/sentinel"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists the voucher ledger in PostgreSQL. This store is pure
// I/O; the all-or-nothing settlement rule lives in the settlement service,
// enforced here through row locks inside the caller's transaction.
type Postgres struct {
	q querier
}

// NewPostgres constructs a PostgreSQL-backed ledger on a pool.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// NewPostgresTx constructs a ledger bound to an open transaction. AcquireActive
// row locks only hold for the transaction, so settlement always uses this form.
func NewPostgresTx(tx *sql.Tx) *Postgres { return &Postgres{q: tx} }

const voucherColumns = `code, denomination, household_id, tranche, status, created_at, redeemed_at, redeemed_by`

func (s *Postgres) Insert(ctx context.Context, v *models.Voucher) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO vouchers (code, denomination, household_id, tranche, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.Code, int(v.Denomination), v.HouseholdID, v.Tranche, string(v.Status), v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("voucher code %s: %w", v.Code, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

func (s *Postgres) InsertBatch(ctx context.Context, vouchers []*models.Voucher) error {
	for _, v := range vouchers {
		if err := s.Insert(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM vouchers WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("voucher code exists: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ActiveByHousehold(ctx context.Context, householdID string) ([]*models.Voucher, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE household_id = $1 AND status = 'Active'
		ORDER BY created_at, code
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}
	defer rows.Close()
	return scanVouchers(rows)
}

func (s *Postgres) AcquireActive(ctx context.Context, householdID string, denom models.Denomination, quantity int) ([]*models.Voucher, error) {
	// FOR UPDATE serializes concurrent settlements on the same rows: the
	// second caller blocks, then re-evaluates the status filter and comes up
	// short.
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE household_id = $1 AND denomination = $2 AND status = 'Active'
		ORDER BY created_at, code
		LIMIT $3
		FOR UPDATE
	`, householdID, int(denom), quantity)
	if err != nil {
		return nil, fmt.Errorf("acquire active vouchers: %w", err)
	}
	defer rows.Close()
	vouchers, err := scanVouchers(rows)
	if err != nil {
		return nil, err
	}
	if len(vouchers) < quantity {
		return nil, fmt.Errorf("%d active vouchers of denomination %d, need %d: %w",
			len(vouchers), denom, quantity, sentinel.ErrInsufficient)
	}
	return vouchers, nil
}

func (s *Postgres) MarkRedeemed(ctx context.Context, codes []string, merchantID string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE vouchers
		SET status = 'Redeemed', redeemed_at = $2, redeemed_by = $3
		WHERE code = ANY($1) AND status = 'Active'
	`, codes, at, merchantID)
	if err != nil {
		return fmt.Errorf("mark vouchers redeemed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark vouchers redeemed: %w", err)
	}
	if affected != int64(len(codes)) {
		return fmt.Errorf("marked %d of %d vouchers: %w", affected, len(codes), sentinel.ErrInvalidState)
	}
	return nil
}

func scanVouchers(rows *sql.Rows) ([]*models.Voucher, error) {
	var vouchers []*models.Voucher
	for rows.Next() {
		var (
			v          models.Voucher
			denom      int
			status     string
			redeemedAt sql.NullTime
			redeemedBy sql.NullString
		)
		if err := rows.Scan(&v.Code, &denom, &v.HouseholdID, &v.Tranche, &status, &v.CreatedAt, &redeemedAt, &redeemedBy); err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		v.Denomination = models.Denomination(denom)
		v.Status = models.Status(status)
		if redeemedAt.Valid {
			t := redeemedAt.Time
			v.RedeemedAt = &t
		}
		v.RedeemedBy = redeemedBy.String
		vouchers = append(vouchers, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan vouchers: %w", err)
	}
	return vouchers, nil
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
