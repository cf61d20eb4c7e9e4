package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"voucher-ledger/internal/merchant/models"
	"voucher-ledger/pkg/platform/sentinel"
)

// Postgres persists merchants in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed merchant store.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (s *Postgres) Create(ctx context.Context, m *models.Merchant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (
			id, name, uen, bank_name, bank_code, branch_code, branch_name,
			account_number, account_holder_name, registration_date, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		m.ID, m.Name, m.UEN, m.BankName, m.BankCode, m.BranchCode, m.BranchName,
		m.AccountNumber, m.AccountHolderName, m.RegistrationDate, string(m.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("merchant %s: %w", m.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create merchant: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*models.Merchant, error) {
	var (
		m      models.Merchant
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, uen, bank_name, bank_code, branch_code, branch_name,
		       account_number, account_holder_name, registration_date, status
		FROM merchants
		WHERE id = $1
	`, id).Scan(
		&m.ID, &m.Name, &m.UEN, &m.BankName, &m.BankCode, &m.BranchCode, &m.BranchName,
		&m.AccountNumber, &m.AccountHolderName, &m.RegistrationDate, &status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("merchant %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get merchant: %w", err)
	}
	m.Status = models.Status(status)
	return &m, nil
}
