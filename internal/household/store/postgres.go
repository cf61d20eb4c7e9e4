package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"voucher-ledger/internal/household/models"
	"voucher-ledger/pkg/platform/sentinel"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same store code
// runs inside and outside a transaction scope.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists households in PostgreSQL. Profile info and the claim map
// are stored as JSONB; the claim map is only ever mutated through Update
// inside the allocator's transaction.
type Postgres struct {
	q querier
}

// NewPostgres constructs a PostgreSQL-backed household store on a pool.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// NewPostgresTx constructs a household store bound to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres { return &Postgres{q: tx} }

func (s *Postgres) Create(ctx context.Context, h *models.Household) error {
	info, claims, err := marshalHousehold(h)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO households (id, info, claims, created_at)
		VALUES ($1, $2, $3, $4)
	`, h.ID, info, claims, h.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("household %s already registered: %w", h.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create household: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*models.Household, error) {
	return s.get(ctx, id, "")
}

// GetForUpdate locks the household row for the rest of the transaction. Two
// concurrent issuances for the same household serialize here, and the second
// re-reads the claims the first committed.
func (s *Postgres) GetForUpdate(ctx context.Context, id string) (*models.Household, error) {
	return s.get(ctx, id, " FOR UPDATE")
}

func (s *Postgres) get(ctx context.Context, id, locking string) (*models.Household, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, info, claims, created_at
		FROM households
		WHERE id = $1
	`+locking, id)
	h, err := scanHousehold(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("household %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *Postgres) Update(ctx context.Context, h *models.Household) error {
	info, claims, err := marshalHousehold(h)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE households SET info = $2, claims = $3 WHERE id = $1
	`, h.ID, info, claims)
	if err != nil {
		return fmt.Errorf("update household: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update household: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("household %s: %w", h.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM households WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("household exists: %w", err)
	}
	return exists, nil
}

func marshalHousehold(h *models.Household) (info, claims []byte, err error) {
	if info, err = json.Marshal(h.Info); err != nil {
		return nil, nil, fmt.Errorf("marshal household info: %w", err)
	}
	if claims, err = json.Marshal(h.Claims); err != nil {
		return nil, nil, fmt.Errorf("marshal household claims: %w", err)
	}
	return info, claims, nil
}

func scanHousehold(row *sql.Row) (*models.Household, error) {
	var (
		h      models.Household
		info   []byte
		claims []byte
	)
	if err := row.Scan(&h.ID, &info, &claims, &h.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(info, &h.Info); err != nil {
		return nil, fmt.Errorf("unmarshal household info: %w", err)
	}
	if err := json.Unmarshal(claims, &h.Claims); err != nil {
		return nil, fmt.Errorf("unmarshal household claims: %w", err)
	}
	return &h, nil
}
