package analytics

import (
	"fmt"
	"math"
)

// Params carries every tunable of the analytics. Nothing is read from the environment.
type Params struct {
	ContractSize      int     `json:"contract_size" yaml:"contract_size"`
	RolloverThreshold float64 `json:"rollover_threshold" yaml:"rollover_threshold"`
	RelativeStep      float64 `json:"relative_step" yaml:"relative_step"`
	DefaultVolatility float64 `json:"default_volatility" yaml:"default_volatility"`
	TopN              int     `json:"top_n" yaml:"top_n"`
	MagnetBand        float64 `json:"magnet_band" yaml:"magnet_band"`
	GapFraction       float64 `json:"gap_fraction" yaml:"gap_fraction"`
	DecayDays         []int   `json:"decay_days" yaml:"decay_days"`
	DayCountBasis     float64 `json:"day_count_basis" yaml:"day_count_basis"`
}

// DefaultParams returns the standard tunables
func DefaultParams() Params {
	return Params{
		ContractSize:      1,
		RolloverThreshold: DefaultRolloverThreshold,
		RelativeStep:      DefaultRelativeStep,
		DefaultVolatility: 0.2,
		TopN:              10,
		MagnetBand:        1000,
		GapFraction:       0.3,
		DecayDays:         append([]int(nil), DefaultDecayDays...),
		DayCountBasis:     365,
	}
}

// Validate rejects tunables that would make results meaningless
func (p Params) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"rollover_threshold", p.RolloverThreshold},
		{"relative_step", p.RelativeStep},
		{"default_volatility", p.DefaultVolatility},
		{"magnet_band", p.MagnetBand},
		{"gap_fraction", p.GapFraction},
		{"day_count_basis", p.DayCountBasis},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			return fmt.Errorf("invalid %s: %v", c.name, c.value)
		}
	}
	if p.ContractSize < 0 {
		return fmt.Errorf("invalid contract_size: %d", p.ContractSize)
	}
	if p.TopN < 0 {
		return fmt.Errorf("invalid top_n: %d", p.TopN)
	}
	return nil
}

// withDefaults fills zero values so a partially populated Params still works
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.ContractSize <= 0 {
		p.ContractSize = d.ContractSize
	}
	if p.RolloverThreshold <= 0 {
		p.RolloverThreshold = d.RolloverThreshold
	}
	if p.RelativeStep <= 0 {
		p.RelativeStep = d.RelativeStep
	}
	if p.DefaultVolatility <= 0 {
		p.DefaultVolatility = d.DefaultVolatility
	}
	if p.TopN <= 0 {
		p.TopN = d.TopN
	}
	if p.MagnetBand <= 0 {
		p.MagnetBand = d.MagnetBand
	}
	if p.GapFraction <= 0 {
		p.GapFraction = d.GapFraction
	}
	if len(p.DecayDays) == 0 {
		p.DecayDays = d.DecayDays
	}
	if p.DayCountBasis <= 0 {
		p.DayCountBasis = d.DayCountBasis
	}
	return p
}
