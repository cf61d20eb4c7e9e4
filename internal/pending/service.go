package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voucher-ledger/internal/platform/metrics"
	vouchermodels "voucher-ledger/internal/voucher/models"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/requestcontext"
)

// codeRetries bounds collision retries when staging. The code space is 32^6;
// hitting the bound means the store is effectively full or broken.
const codeRetries = 5

// Store holds staged requests keyed by one-time code. Take removes and
// returns the request in one step; when two callers race on the same code
// exactly one receives it and the other gets sentinel.ErrNotFound.
type Store interface {
	Put(ctx context.Context, req *Request) error
	Get(ctx context.Context, code string) (*Request, error)
	Take(ctx context.Context, code string) (*Request, error)
	Delete(ctx context.Context, code string) error
}

// Exchange stages redemption requests and hands them to confirms. It owns the
// TTL: expiry is evaluated lazily when a code is claimed, never by a sweeper,
// so an expired code behaves identically to an unknown one.
type Exchange struct {
	store   Store
	denoms  map[vouchermodels.Denomination]bool
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewExchange constructs the pending-redemption exchange. denoms is the set of
// face values in circulation; selections outside it are rejected at staging.
func NewExchange(store Store, denoms []vouchermodels.Denomination, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Exchange {
	set := make(map[vouchermodels.Denomination]bool, len(denoms))
	for _, d := range denoms {
		set[d] = true
	}
	return &Exchange{store: store, denoms: set, ttl: ttl, logger: logger, metrics: m}
}

// TTL returns the configured lifetime of a staged request.
func (e *Exchange) TTL() time.Duration {
	return e.ttl
}

// Stage validates the household's denomination selection and parks it under a
// fresh one-time code for a merchant to confirm. Staging reserves nothing in
// the ledger; the vouchers stay spendable until the confirm settles.
func (e *Exchange) Stage(ctx context.Context, householdID string, selections map[vouchermodels.Denomination]int) (*Request, error) {
	if householdID == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "household id is required")
	}
	total, err := e.validateSelections(selections)
	if err != nil {
		return nil, err
	}

	req := &Request{
		HouseholdID: householdID,
		Selections:  selections,
		Total:       total,
		CreatedAt:   requestcontext.Now(ctx),
	}
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := NewCode()
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to stage redemption")
		}
		req.Code = code
		err = e.store.Put(ctx, req)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to stage redemption")
		}
		if e.metrics != nil {
			e.metrics.PendingStaged.Inc()
		}
		e.logger.InfoContext(ctx, "redemption staged",
			"request_id", requestcontext.RequestID(ctx),
			"household_id", householdID,
			"code", req.Code,
			"total", total,
		)
		return req.Clone(), nil
	}
	return nil, domainerrors.New(domainerrors.CodeInternal, "failed to stage redemption")
}

// Claim takes the staged request out of the store for settlement. The removal
// happens before the caller settles, so when two confirms race on the same
// code exactly one of them obtains the request and the other sees not found.
// A request past its TTL is dropped and reported as not found.
func (e *Exchange) Claim(ctx context.Context, code string) (*Request, error) {
	req, err := e.store.Take(ctx, code)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "redemption code not found or expired")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to claim redemption code")
	}
	if req.Expired(e.ttl, requestcontext.Now(ctx)) {
		if e.metrics != nil {
			e.metrics.PendingExpired.Inc()
		}
		return nil, domainerrors.New(domainerrors.CodeNotFound, "redemption code not found or expired")
	}
	if e.metrics != nil {
		e.metrics.PendingConsumed.Inc()
	}
	return req, nil
}

// Restage puts a claimed request back under its original code after a failed
// settlement, so the household can correct the problem and retry.
func (e *Exchange) Restage(ctx context.Context, req *Request) error {
	if err := e.store.Put(ctx, req); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to restage redemption code")
	}
	e.logger.InfoContext(ctx, "redemption code restaged",
		"request_id", requestcontext.RequestID(ctx),
		"code", req.Code,
	)
	return nil
}

// validateSelections rejects empty, unknown-denomination, or non-positive
// selections and returns the implied transaction total.
func (e *Exchange) validateSelections(selections map[vouchermodels.Denomination]int) (int, error) {
	if len(selections) == 0 {
		return 0, domainerrors.New(domainerrors.CodeBadRequest, "at least one denomination must be selected")
	}
	total := 0
	for denom, quantity := range selections {
		if !e.denoms[denom] {
			return 0, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown denomination %d", denom))
		}
		if quantity <= 0 {
			return 0, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("quantity for denomination %d must be positive", denom))
		}
		total += int(denom) * quantity
	}
	return total, nil
}
