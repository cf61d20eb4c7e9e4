// Package settlement redeems staged selections against the voucher ledger.
// A confirm consumes every selected voucher or none of them; partial
// settlements never become visible.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"voucher-ledger/internal/auditlog"
	householdstore "voucher-ledger/internal/household/store"
	merchantstore "voucher-ledger/internal/merchant/store"
	"voucher-ledger/internal/platform/metrics"
	"voucher-ledger/internal/settlement/models"
	settlementstore "voucher-ledger/internal/settlement/store"
	vouchermodels "voucher-ledger/internal/voucher/models"
	voucherstore "voucher-ledger/internal/voucher/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/requestcontext"
)

// Rejection reasons for the rejected-redemptions counter.
const (
	reasonUnknownMerchant  = "unknown_merchant"
	reasonInactiveMerchant = "inactive_merchant"
	reasonUnknownHousehold = "unknown_household"
	reasonBadSelection     = "bad_selection"
	reasonInsufficient     = "insufficient_vouchers"
)

// Stores are the stores a settlement mutates together: the ledger and the
// transaction history.
type Stores struct {
	Vouchers voucherstore.Store
	History  settlementstore.Store
}

// Tx provides the transactional boundary around a settlement: the voucher
// state flips and the history record land together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores Stores) error) error
}

// Service is the redemption settlement engine.
type Service struct {
	tx         Tx
	reads      Stores
	denoms     map[vouchermodels.Denomination]bool
	households householdstore.Store
	merchants  merchantstore.Store
	audit      *auditlog.Service
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewService constructs the settlement engine. reads serves queries outside
// the transactional boundary and must be backed by the same data as tx.
// denoms is the set of face values in circulation; selections outside it are
// rejected as bad requests before the ledger is consulted.
func NewService(tx Tx, reads Stores, denoms []vouchermodels.Denomination, households householdstore.Store, merchants merchantstore.Store, audit *auditlog.Service, logger *slog.Logger, m *metrics.Metrics) *Service {
	set := make(map[vouchermodels.Denomination]bool, len(denoms))
	for _, d := range denoms {
		set[d] = true
	}
	return &Service{
		tx:         tx,
		reads:      reads,
		denoms:     set,
		households: households,
		merchants:  merchants,
		audit:      audit,
		logger:     logger,
		metrics:    m,
	}
}

// ConfirmRedemption settles the selection: it consumes the requested count of
// Active vouchers per denomination, records the transaction, and projects it
// into the audit log. On any failure the ledger is left exactly as it was.
func (s *Service) ConfirmRedemption(ctx context.Context, householdID, merchantID string, selections map[vouchermodels.Denomination]int) (*models.RedemptionTransaction, error) {
	start := time.Now()

	if err := s.checkMerchant(ctx, merchantID); err != nil {
		return nil, err
	}
	if err := s.checkHousehold(ctx, householdID); err != nil {
		return nil, err
	}
	if err := s.validateSelections(selections); err != nil {
		if s.metrics != nil {
			s.metrics.IncRejected(reasonBadSelection)
		}
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var settled *models.RedemptionTransaction
	err := s.tx.RunInTx(withTxHousehold(ctx, householdID), func(stores Stores) error {
		consumed := make([]models.ConsumedVoucher, 0)
		total := 0
		for _, denom := range sortedDenominations(selections) {
			quantity := selections[denom]
			vouchers, err := stores.Vouchers.AcquireActive(ctx, householdID, denom, quantity)
			if errors.Is(err, sentinel.ErrInsufficient) {
				if s.metrics != nil {
					s.metrics.IncRejected(reasonInsufficient)
				}
				return domainerrors.New(domainerrors.CodeConflict,
					fmt.Sprintf("not enough active vouchers of denomination %d", denom))
			}
			if err != nil {
				return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to select vouchers")
			}
			for _, v := range vouchers {
				consumed = append(consumed, models.ConsumedVoucher{Code: v.Code, Denomination: v.Denomination})
				total += int(v.Denomination)
			}
		}

		codes := make([]string, len(consumed))
		for i, c := range consumed {
			codes[i] = c.Code
		}
		if err := stores.Vouchers.MarkRedeemed(ctx, codes, merchantID, now); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to redeem vouchers")
		}

		tx := &models.RedemptionTransaction{
			ID:          models.NewTransactionID(),
			HouseholdID: householdID,
			MerchantID:  merchantID,
			Total:       total,
			Vouchers:    consumed,
			Timestamp:   now,
		}
		if err := stores.History.Append(ctx, tx); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to record settlement")
		}
		settled = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RedemptionsSettled.Inc()
		s.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "redemption settled",
		"request_id", requestcontext.RequestID(ctx),
		"transaction_id", settled.ID,
		"household_id", householdID,
		"merchant_id", merchantID,
		"total", settled.Total,
		"vouchers", len(settled.Vouchers),
	)

	// The ledger state is committed; the audit projection is best effort.
	s.audit.Append(ctx, settled)
	return settled, nil
}

// ActiveVouchers lists the household's spendable vouchers in deterministic
// order.
func (s *Service) ActiveVouchers(ctx context.Context, householdID string) ([]*vouchermodels.Voucher, error) {
	if err := s.checkHousehold(ctx, householdID); err != nil {
		return nil, err
	}
	vouchers, err := s.reads.Vouchers.ActiveByHousehold(ctx, householdID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list vouchers")
	}
	return vouchers, nil
}

// History lists the household's settled transactions, most recent first.
func (s *Service) History(ctx context.Context, householdID string) ([]*models.RedemptionTransaction, error) {
	if err := s.checkHousehold(ctx, householdID); err != nil {
		return nil, err
	}
	history, err := s.reads.History.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list redemption history")
	}
	return history, nil
}

func (s *Service) checkMerchant(ctx context.Context, merchantID string) error {
	if merchantID == "" {
		if s.metrics != nil {
			s.metrics.IncRejected(reasonUnknownMerchant)
		}
		return domainerrors.New(domainerrors.CodeBadRequest, "merchant id is required")
	}
	merchant, err := s.merchants.Get(ctx, merchantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		if s.metrics != nil {
			s.metrics.IncRejected(reasonUnknownMerchant)
		}
		return domainerrors.New(domainerrors.CodeBadRequest, "invalid merchant")
	}
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load merchant")
	}
	if !merchant.IsActive() {
		if s.metrics != nil {
			s.metrics.IncRejected(reasonInactiveMerchant)
		}
		return domainerrors.New(domainerrors.CodeBadRequest, "merchant is not active")
	}
	return nil
}

func (s *Service) checkHousehold(ctx context.Context, householdID string) error {
	if householdID == "" {
		return domainerrors.New(domainerrors.CodeBadRequest, "household id is required")
	}
	exists, err := s.households.Exists(ctx, householdID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to check household")
	}
	if !exists {
		if s.metrics != nil {
			s.metrics.IncRejected(reasonUnknownHousehold)
		}
		return domainerrors.New(domainerrors.CodeNotFound, "household not found")
	}
	return nil
}

// validateSelections rejects empty, unknown-denomination, or non-positive
// selections. Denominations outside the configured set are a caller error,
// not an insufficiency; they never reach the ledger.
func (s *Service) validateSelections(selections map[vouchermodels.Denomination]int) error {
	if len(selections) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "at least one denomination must be selected")
	}
	for denom, quantity := range selections {
		if !s.denoms[denom] {
			return domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown denomination %d", denom))
		}
		if quantity <= 0 {
			return domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("quantity for denomination %d must be positive", denom))
		}
	}
	return nil
}

// sortedDenominations fixes the order denominations are acquired in, so two
// concurrent settlements over the same household contend in the same order.
func sortedDenominations(selections map[vouchermodels.Denomination]int) []vouchermodels.Denomination {
	denoms := make([]vouchermodels.Denomination, 0, len(selections))
	for d := range selections {
		denoms = append(denoms, d)
	}
	sort.Slice(denoms, func(i, j int) bool { return denoms[i] < denoms[j] })
	return denoms
}
