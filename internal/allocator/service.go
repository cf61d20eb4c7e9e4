// Package allocator issues tranches: it mints a tranche's full denomination
// breakdown for a household and flips the household's claim, atomically.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	householdstore "voucher-ledger/internal/household/store"
	"voucher-ledger/internal/platform/metrics"
	vouchermodels "voucher-ledger/internal/voucher/models"
	voucherstore "voucher-ledger/internal/voucher/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/requestcontext"
)

// codeRetries bounds per-voucher code regeneration on a ledger collision.
const codeRetries = 5

// Stores are the two stores an issuance mutates together.
type Stores struct {
	Households householdstore.Store
	Vouchers   voucherstore.Store
}

// Tx provides the transactional boundary around an issuance: the claim flip
// and the voucher inserts land together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores Stores) error) error
}

// Service is the denomination allocator.
type Service struct {
	tx       Tx
	tranches vouchermodels.TrancheConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService constructs the allocator over a validated tranche configuration.
func NewService(tx Tx, tranches vouchermodels.TrancheConfig, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{tx: tx, tranches: tranches, logger: logger, metrics: m}
}

// Tranches exposes the configuration for selection validation elsewhere.
func (s *Service) Tranches() vouchermodels.TrancheConfig {
	return s.tranches
}

// Issue mints the tranche's breakdown for the household. A tranche is issued
// to a household at most once; a second call returns a conflict and leaves
// the ledger untouched.
func (s *Service) Issue(ctx context.Context, householdID, label string) ([]*vouchermodels.Voucher, error) {
	if householdID == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "household id is required")
	}
	tranche, ok := s.tranches[label]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown tranche %q", label))
	}

	var issued []*vouchermodels.Voucher
	err := s.tx.RunInTx(withTxHousehold(ctx, householdID), func(stores Stores) error {
		// The locking read keeps the claim check and the flip below mutually
		// exclusive across concurrent issuances for the same household.
		household, err := stores.Households.GetForUpdate(ctx, householdID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return domainerrors.New(domainerrors.CodeNotFound, "household not found")
		}
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load household")
		}
		if !household.CanClaim(label) {
			if household.Claims[label] {
				return domainerrors.New(domainerrors.CodeConflict, fmt.Sprintf("tranche %s already claimed", label))
			}
			return domainerrors.New(domainerrors.CodeConflict, fmt.Sprintf("tranche %s is not open to this household", label))
		}

		vouchers, err := s.mint(ctx, stores.Vouchers, householdID, label, tranche, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := stores.Vouchers.InsertBatch(ctx, vouchers); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to persist issued vouchers")
		}
		household.MarkClaimed(label)
		if err := stores.Households.Update(ctx, household); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to record tranche claim")
		}
		issued = vouchers
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VouchersIssued.Add(float64(len(issued)))
	}
	s.logger.InfoContext(ctx, "tranche issued",
		"request_id", requestcontext.RequestID(ctx),
		"household_id", householdID,
		"tranche", label,
		"vouchers", len(issued),
		"total_value", tranche.TotalValue,
	)
	return issued, nil
}

// mint builds the tranche's vouchers in breakdown order, regenerating any
// code already present in the ledger.
func (s *Service) mint(ctx context.Context, vouchers voucherstore.Store, householdID, label string, tranche vouchermodels.Tranche, now time.Time) ([]*vouchermodels.Voucher, error) {
	minted := make([]*vouchermodels.Voucher, 0, tranche.VoucherCount())
	for _, item := range tranche.Breakdown {
		for i := 0; i < item.Count; i++ {
			voucher, err := s.mintOne(ctx, vouchers, householdID, label, item.Denomination, now)
			if err != nil {
				return nil, err
			}
			minted = append(minted, voucher)
		}
	}
	return minted, nil
}

func (s *Service) mintOne(ctx context.Context, vouchers voucherstore.Store, householdID, label string, denom vouchermodels.Denomination, now time.Time) (*vouchermodels.Voucher, error) {
	for attempt := 0; attempt < codeRetries; attempt++ {
		voucher, err := vouchermodels.New(householdID, label, denom, now)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to mint voucher")
		}
		exists, err := vouchers.CodeExists(ctx, voucher.Code)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to check voucher code")
		}
		if !exists {
			return voucher, nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeInternal, "failed to mint voucher: code space exhausted")
}
