package settlement

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"voucher-ledger/internal/auditlog"
	householdmodels "voucher-ledger/internal/household/models"
	householdstore "voucher-ledger/internal/household/store"
	merchantmodels "voucher-ledger/internal/merchant/models"
	merchantstore "voucher-ledger/internal/merchant/store"
	settlementstore "voucher-ledger/internal/settlement/store"
	vouchermodels "voucher-ledger/internal/voucher/models"
	voucherstore "voucher-ledger/internal/voucher/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
)

type SettlementSuite struct {
	suite.Suite
	ctx        context.Context
	households *householdstore.InMemory
	merchants  *merchantstore.InMemory
	vouchers   *voucherstore.InMemory
	history    *settlementstore.InMemory
	auditDir   string
	service    *Service
	now        time.Time
	merchantID string
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(SettlementSuite))
}

func (s *SettlementSuite) SetupTest() {
	s.ctx = context.Background()
	s.households = householdstore.NewInMemory()
	s.merchants = merchantstore.NewInMemory()
	s.vouchers = voucherstore.NewInMemory()
	s.history = settlementstore.NewInMemory()
	s.auditDir = s.T().TempDir()
	s.now = time.Date(2025, 5, 12, 14, 30, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := auditlog.NewService(auditlog.NewWriter(s.auditDir), auditlog.NewLogNotifier(logger), logger, nil)
	stores := Stores{Vouchers: s.vouchers, History: s.history}
	s.service = NewService(NewMemoryTx(stores), stores,
		[]vouchermodels.Denomination{2, 5, 10}, s.households, s.merchants, audit, logger, nil)

	s.seedHousehold("HH001")
	s.merchantID = s.seedMerchant(merchantmodels.StatusActive)
}

func (s *SettlementSuite) seedHousehold(id string) {
	s.T().Helper()
	h, err := householdmodels.New(id, nil, []string{"May_2025"}, s.now)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.households.Create(s.ctx, h))
}

func (s *SettlementSuite) seedMerchant(status merchantmodels.Status) string {
	s.T().Helper()
	m, err := merchantmodels.New(merchantmodels.Registration{
		Name:              "Sheng Siong",
		UEN:               "198403096E",
		BankName:          "DBS Bank Ltd",
		BankCode:          "7171",
		BranchCode:        "001",
		AccountNumber:     "0012345678",
		AccountHolderName: "Sheng Siong Supermarket Pte Ltd",
		Status:            string(status),
	}, s.now)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.merchants.Create(s.ctx, m))
	return m.ID
}

func (s *SettlementSuite) seedVouchers(householdID string, denom vouchermodels.Denomination, count int) []*vouchermodels.Voucher {
	s.T().Helper()
	vouchers := make([]*vouchermodels.Voucher, 0, count)
	for i := 0; i < count; i++ {
		v, err := vouchermodels.New(householdID, "May_2025", denom, s.now.Add(time.Duration(i)*time.Second))
		require.NoError(s.T(), err)
		vouchers = append(vouchers, v)
	}
	require.NoError(s.T(), s.vouchers.InsertBatch(s.ctx, vouchers))
	return vouchers
}

func (s *SettlementSuite) TestConfirmSettlesSelection() {
	s.seedVouchers("HH001", 2, 5)
	s.seedVouchers("HH001", 10, 3)

	tx, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{2: 3, 10: 1})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 16, tx.Total)
	assert.Len(s.T(), tx.Vouchers, 4)
	assert.Equal(s.T(), "HH001", tx.HouseholdID)
	assert.Equal(s.T(), s.merchantID, tx.MerchantID)
	assert.NotEmpty(s.T(), tx.ID)

	active, err := s.vouchers.ActiveByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 4)

	history, err := s.history.ListByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 1)
	assert.Equal(s.T(), tx.ID, history[0].ID)
}

func (s *SettlementSuite) TestConfirmConsumesOldestFirst() {
	seeded := s.seedVouchers("HH001", 2, 4)

	tx, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{2: 2})
	require.NoError(s.T(), err)

	require.Len(s.T(), tx.Vouchers, 2)
	assert.Equal(s.T(), seeded[0].Code, tx.Vouchers[0].Code)
	assert.Equal(s.T(), seeded[1].Code, tx.Vouchers[1].Code)
}

func (s *SettlementSuite) TestInsufficientVouchersLeavesLedgerUntouched() {
	s.seedVouchers("HH001", 2, 5)
	s.seedVouchers("HH001", 10, 1)

	// The 2s could be satisfied, the 10s cannot; nothing may change.
	_, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{2: 3, 10: 2})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeConflict))

	active, err := s.vouchers.ActiveByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 6)

	history, err := s.history.ListByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), history)

	entries, err := os.ReadDir(s.auditDir)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)
}

func (s *SettlementSuite) TestConcurrentConfirmsNeverDoubleSpend() {
	s.seedVouchers("HH001", 10, 3)

	const attempts = 6
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
				map[vouchermodels.Denomination]int{10: 2})
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			succeeded++
		}
	}
	// Three vouchers fund exactly one settlement of two.
	assert.Equal(s.T(), 1, succeeded)

	active, err := s.vouchers.ActiveByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 1)
}

func (s *SettlementSuite) TestConfirmWritesAuditRows() {
	s.seedVouchers("HH001", 5, 2)

	tx, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{5: 2})
	require.NoError(s.T(), err)

	path := filepath.Join(s.auditDir, auditlog.BucketName(tx))
	f, err := os.Open(path)
	require.NoError(s.T(), err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 3)
	assert.Equal(s.T(), auditlog.Columns, rows[0])
	assert.Equal(s.T(), tx.ID, rows[1][0])
	assert.Equal(s.T(), "$5.00", rows[1][5])
	assert.Equal(s.T(), "$10.00", rows[1][6])
	assert.Equal(s.T(), "1", rows[1][8])
	assert.Equal(s.T(), auditlog.FinalRemark, rows[2][8])
}

func (s *SettlementSuite) TestConfirmRejectsUnknownMerchant() {
	s.seedVouchers("HH001", 2, 2)

	_, err := s.service.ConfirmRedemption(s.ctx, "HH001", "M-NOPE",
		map[vouchermodels.Denomination]int{2: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))
}

func (s *SettlementSuite) TestConfirmRejectsInactiveMerchant() {
	s.seedVouchers("HH001", 2, 2)
	suspended := s.seedMerchant(merchantmodels.StatusSuspended)

	_, err := s.service.ConfirmRedemption(s.ctx, "HH001", suspended,
		map[vouchermodels.Denomination]int{2: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))
}

func (s *SettlementSuite) TestConfirmRejectsUnknownHousehold() {
	_, err := s.service.ConfirmRedemption(s.ctx, "HH404", s.merchantID,
		map[vouchermodels.Denomination]int{2: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeNotFound))
}

func (s *SettlementSuite) TestConfirmRejectsBadSelection() {
	s.seedVouchers("HH001", 2, 2)

	_, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID, nil)
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))

	_, err = s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{2: 0})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))

	_, err = s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{-2: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))
}

func (s *SettlementSuite) TestConfirmRejectsUncirculatedDenomination() {
	s.seedVouchers("HH001", 2, 2)

	// 3 is positive but no tranche ever issued it; that is a caller error,
	// not an insufficiency.
	_, err := s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{3: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	assert.Contains(s.T(), err.Error(), "unknown denomination 3")

	active, err := s.vouchers.ActiveByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 2)
}

func (s *SettlementSuite) TestActiveVouchersAndHistory() {
	s.seedVouchers("HH001", 2, 3)

	active, err := s.service.ActiveVouchers(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 3)

	_, err = s.service.ConfirmRedemption(s.ctx, "HH001", s.merchantID,
		map[vouchermodels.Denomination]int{2: 2})
	require.NoError(s.T(), err)

	active, err = s.service.ActiveVouchers(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 1)

	history, err := s.service.History(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), history, 1)
}

func (s *SettlementSuite) TestHistoryUnknownHousehold() {
	_, err := s.service.History(s.ctx, "HH404")
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeNotFound))
}
