//go:build integration

package allocator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	householdmodels "voucher-ledger/internal/household/models"
	householdstore "voucher-ledger/internal/household/store"
	vouchermodels "voucher-ledger/internal/voucher/models"
	voucherstore "voucher-ledger/internal/voucher/store"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/testutil/containers"
)

type AllocatorPostgresSuite struct {
	suite.Suite
	ctx      context.Context
	pg       *containers.PostgresContainer
	service  *Service
	vouchers *voucherstore.Postgres
}

func TestAllocatorPostgresSuite(t *testing.T) {
	suite.Run(t, new(AllocatorPostgresSuite))
}

func (s *AllocatorPostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.GetManager().GetPostgres(s.T())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tranches := vouchermodels.TrancheConfig{
		"May_2025": {
			TotalValue: 20,
			Breakdown: []vouchermodels.BreakdownItem{
				{Denomination: 2, Count: 5},
				{Denomination: 10, Count: 1},
			},
		},
	}
	s.service = NewService(NewPostgresTx(s.pg.DB), tranches, logger, nil)
	s.vouchers = voucherstore.NewPostgres(s.pg.DB)
}

func (s *AllocatorPostgresSuite) SetupTest() {
	require.NoError(s.T(), s.pg.TruncateTables(s.ctx,
		"redemption_vouchers", "redemption_transactions", "vouchers", "households"))

	households := householdstore.NewPostgres(s.pg.DB)
	h, err := householdmodels.New("HH001", nil, []string{"May_2025"},
		time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(s.T(), err)
	require.NoError(s.T(), households.Create(s.ctx, h))
}

func (s *AllocatorPostgresSuite) TestIssueMintsBreakdownAndFlipsClaim() {
	issued, err := s.service.Issue(s.ctx, "HH001", "May_2025")
	require.NoError(s.T(), err)
	assert.Len(s.T(), issued, 6)

	active, err := s.vouchers.ActiveByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 6)

	_, err = s.service.Issue(s.ctx, "HH001", "May_2025")
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeConflict))
}

func (s *AllocatorPostgresSuite) TestConcurrentIssuesClaimTrancheOnce() {
	const attempts = 2
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := s.service.Issue(s.ctx, "HH001", "May_2025")
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		err := <-results
		if err == nil {
			succeeded++
			continue
		}
		assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeConflict))
	}
	// The household row lock serializes the two transactions; the loser
	// re-reads the claim the winner committed and backs off.
	assert.Equal(s.T(), 1, succeeded)

	active, err := s.vouchers.ActiveByHousehold(s.ctx, "HH001")
	require.NoError(s.T(), err)
	assert.Len(s.T(), active, 6)
}
