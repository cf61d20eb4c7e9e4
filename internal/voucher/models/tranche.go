package models

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// BreakdownItem is one (denomination, count) pair of a tranche breakdown.
type BreakdownItem struct {
	Denomination Denomination `yaml:"denomination"`
	Count        int          `yaml:"count"`
}

// Tranche describes one issuance round: a declared total value and the
// ordered denomination breakdown that must sum to it.
type Tranche struct {
	TotalValue int             `yaml:"total_value"`
	Breakdown  []BreakdownItem `yaml:"breakdown"`
}

// Sum returns the value of the breakdown.
func (t Tranche) Sum() int {
	sum := 0
	for _, item := range t.Breakdown {
		sum += int(item.Denomination) * item.Count
	}
	return sum
}

// VoucherCount returns how many vouchers the tranche issues.
func (t Tranche) VoucherCount() int {
	n := 0
	for _, item := range t.Breakdown {
		n += item.Count
	}
	return n
}

// TrancheConfig maps tranche labels (e.g. "May_2025") to their breakdowns.
type TrancheConfig map[string]Tranche

// Validate checks configuration self-consistency: every breakdown must be
// non-empty with positive denominations and counts, and must sum to the
// declared total value. Called at startup; a bad configuration is fatal.
func (c TrancheConfig) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("tranche configuration is empty")
	}
	for _, label := range c.Labels() {
		tranche := c[label]
		if len(tranche.Breakdown) == 0 {
			return fmt.Errorf("tranche %s: breakdown is empty", label)
		}
		for i, item := range tranche.Breakdown {
			if !item.Denomination.Valid() {
				return fmt.Errorf("tranche %s: breakdown[%d] denomination must be positive, got %d", label, i, item.Denomination)
			}
			if item.Count <= 0 {
				return fmt.Errorf("tranche %s: breakdown[%d] count must be positive, got %d", label, i, item.Count)
			}
		}
		if sum := tranche.Sum(); sum != tranche.TotalValue {
			return fmt.Errorf("tranche %s: breakdown sums to %d, declared total is %d", label, sum, tranche.TotalValue)
		}
	}
	return nil
}

// Labels returns tranche labels in sorted order for deterministic iteration.
func (c TrancheConfig) Labels() []string {
	labels := make([]string, 0, len(c))
	for label := range c {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Denominations returns the set of face values appearing anywhere in the
// configuration, sorted ascending. Settlement validates selections against it.
func (c TrancheConfig) Denominations() []Denomination {
	seen := map[Denomination]bool{}
	for _, tranche := range c {
		for _, item := range tranche.Breakdown {
			seen[item.Denomination] = true
		}
	}
	denoms := make([]Denomination, 0, len(seen))
	for d := range seen {
		denoms = append(denoms, d)
	}
	sort.Slice(denoms, func(i, j int) bool { return denoms[i] < denoms[j] })
	return denoms
}

// LoadTranches reads and validates a YAML tranche configuration file.
func LoadTranches(path string) (TrancheConfig, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tranche config: %w", err)
	}
	var cfg TrancheConfig
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("parse tranche config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tranche config: %w", err)
	}
	return cfg, nil
}
