package pending

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	vouchermodels "voucher-ledger/internal/voucher/models"
	domainerrors "voucher-ledger/pkg/domain-errors"
	"voucher-ledger/pkg/platform/sentinel"
	"voucher-ledger/pkg/requestcontext"
)

// memoryStore is a minimal map-backed Store for exchange tests; the real
// implementations live in the store package.
type memoryStore struct {
	requests map[string]*Request
}

func newMemoryStore() *memoryStore {
	return &memoryStore{requests: make(map[string]*Request)}
}

func (s *memoryStore) Put(_ context.Context, req *Request) error {
	s.requests[req.Code] = req.Clone()
	return nil
}

func (s *memoryStore) Get(_ context.Context, code string) (*Request, error) {
	req, ok := s.requests[code]
	if !ok {
		return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
	}
	return req.Clone(), nil
}

func (s *memoryStore) Take(_ context.Context, code string) (*Request, error) {
	req, ok := s.requests[code]
	if !ok {
		return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
	}
	delete(s.requests, code)
	return req, nil
}

func (s *memoryStore) Delete(_ context.Context, code string) error {
	delete(s.requests, code)
	return nil
}

type ExchangeSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memoryStore
	exchange *Exchange
	now      time.Time
}

func TestExchangeSuite(t *testing.T) {
	suite.Run(t, new(ExchangeSuite))
}

func (s *ExchangeSuite) SetupTest() {
	s.now = time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = newMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.exchange = NewExchange(s.store, []vouchermodels.Denomination{2, 5, 10}, time.Hour, logger, nil)
}

func (s *ExchangeSuite) TestStageComputesTotalAndCode() {
	req, err := s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{2: 3, 10: 1})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 16, req.Total)
	assert.Equal(s.T(), "HH001", req.HouseholdID)
	assert.Equal(s.T(), s.now, req.CreatedAt)
	assert.Len(s.T(), req.Code, 6)
	for _, r := range req.Code {
		assert.NotContains(s.T(), "0O1I", string(r))
	}
}

func (s *ExchangeSuite) TestStageValidatesSelections() {
	_, err := s.exchange.Stage(s.ctx, "HH001", nil)
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))

	_, err = s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{2: 0})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))

	_, err = s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{-5: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))

	_, err = s.exchange.Stage(s.ctx, "", map[vouchermodels.Denomination]int{2: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))
}

func (s *ExchangeSuite) TestStageRejectsUncirculatedDenomination() {
	_, err := s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{3: 1})
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	assert.Contains(s.T(), err.Error(), "unknown denomination 3")
}

func (s *ExchangeSuite) TestClaimReturnsStagedRequestOnce() {
	staged, err := s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{5: 2})
	require.NoError(s.T(), err)

	claimed, err := s.exchange.Claim(s.ctx, staged.Code)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), staged.HouseholdID, claimed.HouseholdID)
	assert.Equal(s.T(), staged.Total, claimed.Total)
	assert.Equal(s.T(), staged.Selections, claimed.Selections)

	// The claim removed the entry; a second claim of the same code loses.
	_, err = s.exchange.Claim(s.ctx, staged.Code)
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeNotFound))
}

func (s *ExchangeSuite) TestClaimUnknownCode() {
	_, err := s.exchange.Claim(s.ctx, "ZZZZZZ")
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeNotFound))
}

func (s *ExchangeSuite) TestClaimHonoursExpiryBoundary() {
	staged, err := s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{5: 2})
	require.NoError(s.T(), err)

	// One second before expiry it still claims.
	almost := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour-time.Second))
	_, err = s.exchange.Claim(almost, staged.Code)
	require.NoError(s.T(), err)

	expired, err := s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{5: 2})
	require.NoError(s.T(), err)

	late := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour+time.Second))
	_, err = s.exchange.Claim(late, expired.Code)
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeNotFound))

	// The expired entry was dropped; it stays unclaimable at any later time.
	_, err = s.exchange.Claim(s.ctx, expired.Code)
	require.Error(s.T(), err)
	assert.True(s.T(), domainerrors.HasCode(err, domainerrors.CodeNotFound))
}

func (s *ExchangeSuite) TestRestageMakesClaimedCodeClaimableAgain() {
	staged, err := s.exchange.Stage(s.ctx, "HH001", map[vouchermodels.Denomination]int{5: 2})
	require.NoError(s.T(), err)

	claimed, err := s.exchange.Claim(s.ctx, staged.Code)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.exchange.Restage(s.ctx, claimed))

	again, err := s.exchange.Claim(s.ctx, staged.Code)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), staged.Total, again.Total)
	assert.Equal(s.T(), staged.CreatedAt, again.CreatedAt)
}

func TestNewCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
	}
}
