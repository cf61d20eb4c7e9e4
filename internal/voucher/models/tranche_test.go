package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TrancheSuite struct {
	suite.Suite
}

func TestTrancheSuite(t *testing.T) {
	suite.Run(t, new(TrancheSuite))
}

func validConfig() TrancheConfig {
	return TrancheConfig{
		"May_2025": {
			TotalValue: 500,
			Breakdown: []BreakdownItem{
				{Denomination: 2, Count: 50},
				{Denomination: 5, Count: 20},
				{Denomination: 10, Count: 30},
			},
		},
		"Jan_2026": {
			TotalValue: 270,
			Breakdown: []BreakdownItem{
				{Denomination: 2, Count: 30},
				{Denomination: 5, Count: 12},
				{Denomination: 10, Count: 15},
			},
		},
	}
}

func (s *TrancheSuite) TestValidateAcceptsConsistentConfig() {
	require.NoError(s.T(), validConfig().Validate())
}

func (s *TrancheSuite) TestValidateRejectsMismatchedTotal() {
	cfg := validConfig()
	tranche := cfg["May_2025"]
	tranche.TotalValue = 501
	cfg["May_2025"] = tranche

	err := cfg.Validate()
	require.Error(s.T(), err)
	assert.Contains(s.T(), err.Error(), "sums to 500")
}

func (s *TrancheSuite) TestValidateRejectsEmptyBreakdown() {
	cfg := TrancheConfig{"May_2025": {TotalValue: 500}}
	require.Error(s.T(), cfg.Validate())
}

func (s *TrancheSuite) TestValidateRejectsNonPositiveEntries() {
	cfg := TrancheConfig{"bad": {
		TotalValue: 10,
		Breakdown:  []BreakdownItem{{Denomination: -2, Count: 5}},
	}}
	require.Error(s.T(), cfg.Validate())

	cfg = TrancheConfig{"bad": {
		TotalValue: 10,
		Breakdown:  []BreakdownItem{{Denomination: 2, Count: 0}},
	}}
	require.Error(s.T(), cfg.Validate())
}

func (s *TrancheSuite) TestValidateRejectsEmptyConfig() {
	require.Error(s.T(), TrancheConfig{}.Validate())
}

func (s *TrancheSuite) TestSumAndVoucherCount() {
	tranche := validConfig()["May_2025"]
	assert.Equal(s.T(), 500, tranche.Sum())
	assert.Equal(s.T(), 100, tranche.VoucherCount())
}

func (s *TrancheSuite) TestLabelsSorted() {
	assert.Equal(s.T(), []string{"Jan_2026", "May_2025"}, validConfig().Labels())
}

func (s *TrancheSuite) TestDenominationsSortedAndDeduplicated() {
	assert.Equal(s.T(), []Denomination{2, 5, 10}, validConfig().Denominations())
}

func (s *TrancheSuite) TestLoadTranchesFromYAML() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "tranches.yaml")
	contents := `
May_2025:
  total_value: 500
  breakdown:
    - denomination: 2
      count: 50
    - denomination: 5
      count: 20
    - denomination: 10
      count: 30
`
	require.NoError(s.T(), os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadTranches(path)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 500, cfg["May_2025"].TotalValue)
	assert.Equal(s.T(), 100, cfg["May_2025"].VoucherCount())
}

func (s *TrancheSuite) TestLoadTranchesRejectsInconsistentFile() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "tranches.yaml")
	contents := `
May_2025:
  total_value: 999
  breakdown:
    - denomination: 2
      count: 50
`
	require.NoError(s.T(), os.WriteFile(path, []byte(contents), 0o644))

	_, err := LoadTranches(path)
	require.Error(s.T(), err)
}
