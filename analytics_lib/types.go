package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidSnapshot is returned when a snapshot cannot be analysed at all
var ErrInvalidSnapshot = errors.New("invalid option chain snapshot")

// StrikeRecord holds both option legs at one strike of a snapshot
type StrikeRecord struct {
	Strike float64 `json:"strike"`
	Expiry string  `json:"expiry,omitempty"`

	CEOI       int64 `json:"ce_oi"`
	PEOI       int64 `json:"pe_oi"`
	CEOIChange int64 `json:"ce_oi_change"`
	PEOIChange int64 `json:"pe_oi_change"`

	CEPrice     float64  `json:"ce_price"`
	PEPrice     float64  `json:"pe_price"`
	CEPricePrev *float64 `json:"ce_price_prev,omitempty"`
	PEPricePrev *float64 `json:"pe_price_prev,omitempty"`

	CEVolume int64 `json:"ce_volume"`
	PEVolume int64 `json:"pe_volume"`

	// Implied volatilities are decimal fractions (0.18 == 18%)
	CEIV *float64 `json:"ce_iv,omitempty"`
	PEIV *float64 `json:"pe_iv,omitempty"`

	UnderlyingChange float64 `json:"underlying_change,omitempty"`
}

// CEPriceChange returns the call price change when the previous price is known
func (r StrikeRecord) CEPriceChange() (float64, bool) {
	if r.CEPricePrev == nil {
		return 0, false
	}
	return r.CEPrice - *r.CEPricePrev, true
}

// PEPriceChange returns the put price change when the previous price is known
func (r StrikeRecord) PEPriceChange() (float64, bool) {
	if r.PEPricePrev == nil {
		return 0, false
	}
	return r.PEPrice - *r.PEPricePrev, true
}

// OIDiff is call OI minus put OI
func (r StrikeRecord) OIDiff() int64 {
	return r.CEOI - r.PEOI
}

// PrevOIDiff reconstructs the previous session's OI difference from the OI changes
func (r StrikeRecord) PrevOIDiff() int64 {
	return (r.CEOI - r.CEOIChange) - (r.PEOI - r.PEOIChange)
}

// TotalOI is call plus put open interest
func (r StrikeRecord) TotalOI() int64 {
	return r.CEOI + r.PEOI
}

// meanIV averages whichever implied volatilities are present
func (r StrikeRecord) meanIV() (float64, bool) {
	switch {
	case r.CEIV != nil && r.PEIV != nil:
		return (*r.CEIV + *r.PEIV) / 2, true
	case r.CEIV != nil:
		return *r.CEIV, true
	case r.PEIV != nil:
		return *r.PEIV, true
	}
	return 0, false
}

// OptionChainSnapshot is one expiry of an options chain at a point in time
type OptionChainSnapshot struct {
	Symbol       string         `json:"symbol"`
	Spot         float64        `json:"spot"`
	Future       float64        `json:"future,omitempty"`
	RiskFreeRate float64        `json:"risk_free_rate"`
	Timestamp    time.Time      `json:"timestamp"`
	Expiry       string         `json:"expiry,omitempty"`
	Records      []StrikeRecord `json:"records"`
}

// Validate checks the structural invariants every analysis relies on
func (s OptionChainSnapshot) Validate() error {
	if !isFinite(s.Spot) || s.Spot <= 0 {
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidSnapshot, s.Spot)
	}
	if !isFinite(s.RiskFreeRate) || !isFinite(s.Future) {
		return fmt.Errorf("%w: rate and future must be finite", ErrInvalidSnapshot)
	}
	seen := make(map[float64]struct{}, len(s.Records))
	for _, r := range s.Records {
		if !isFinite(r.Strike) || r.Strike <= 0 {
			return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidSnapshot, r.Strike)
		}
		if _, dup := seen[r.Strike]; dup {
			return fmt.Errorf("%w: duplicate strike %v", ErrInvalidSnapshot, r.Strike)
		}
		seen[r.Strike] = struct{}{}
		if r.CEOI < 0 || r.PEOI < 0 {
			return fmt.Errorf("%w: negative open interest at strike %v", ErrInvalidSnapshot, r.Strike)
		}
		if !isFinite(r.CEPrice) || !isFinite(r.PEPrice) {
			return fmt.Errorf("%w: non-finite price at strike %v", ErrInvalidSnapshot, r.Strike)
		}
	}
	return nil
}

// Sorted returns a copy of the snapshot with records ordered by strike
func (s OptionChainSnapshot) Sorted() OptionChainSnapshot {
	out := s
	out.Records = make([]StrikeRecord, len(s.Records))
	copy(out.Records, s.Records)
	sort.SliceStable(out.Records, func(i, j int) bool {
		return out.Records[i].Strike < out.Records[j].Strike
	})
	return out
}

// Strikes returns the snapshot's strikes in ascending order
func (s OptionChainSnapshot) Strikes() []float64 {
	strikes := make([]float64, 0, len(s.Records))
	for _, r := range s.Records {
		strikes = append(strikes, r.Strike)
	}
	sort.Float64s(strikes)
	return strikes
}

// BuildUp classifies the joint move of price and open interest on one leg
type BuildUp string

const (
	LongBuildUp    BuildUp = "long_build_up"
	ShortBuildUp   BuildUp = "short_build_up"
	ShortCovering  BuildUp = "short_covering"
	LongUnwinding  BuildUp = "long_unwinding"
	NeutralBuildUp BuildUp = "neutral"
)

// BuildupLabel is the volume-aware buildup label used when ranking strikes
type BuildupLabel string

const (
	FreshLongBuildup  BuildupLabel = "Fresh Long Buildup"
	FreshShortBuildup BuildupLabel = "Fresh Short Buildup"
	PositionUnwinding BuildupLabel = "Position Unwinding"
	NeutralBuildup    BuildupLabel = "Neutral"
)

// SignalKind is the directional call emitted for a strike
type SignalKind string

const (
	SignalNone    SignalKind = ""
	SignalCallBuy SignalKind = "CALL_BUY"
	SignalPutBuy  SignalKind = "PUT_BUY"
)

// RolloverSignal describes whether open interest is migrating to later expiries
type RolloverSignal string

const (
	RolloverToFar  RolloverSignal = "Rollover to far expiry"
	RolloverStable RolloverSignal = "Stable/No Rollover"
)

// OISkew is the call-minus-put open interest imbalance at a strike
type OISkew struct {
	Diff  int64   `json:"diff"`
	Ratio float64 `json:"ratio"`
}

// PremiumComparison compares market premiums with model prices at a strike
type PremiumComparison struct {
	CETheoretical  float64 `json:"ce_theoretical"`
	PETheoretical  float64 `json:"pe_theoretical"`
	CEMarket       float64 `json:"ce_market"`
	PEMarket       float64 `json:"pe_market"`
	CEMisalignment float64 `json:"ce_misalignment"`
	PEMisalignment float64 `json:"pe_misalignment"`
}

// SmileSummary describes the shape of the implied volatility smile around ATM
type SmileSummary struct {
	LeftAvg     float64 `json:"left_avg"`
	RightAvg    float64 `json:"right_avg"`
	OverallSkew float64 `json:"overall_skew"`
	Steepness   float64 `json:"steepness"`
}

// RankedBuildup is one entry of the top-buildups list
type RankedBuildup struct {
	Strike     float64      `json:"strike"`
	Efficiency float64      `json:"efficiency"`
	Label      BuildupLabel `json:"label"`
}

// StrikeSignal is the rule-based signal for a single strike
type StrikeSignal struct {
	Strike  float64    `json:"strike"`
	Signal  SignalKind `json:"signal"`
	Reasons []string   `json:"reasons,omitempty"`
	Reason  string     `json:"reason"`
	Score   int        `json:"score"`
}

// DerivedStrikeMetrics groups every per-strike analytic of a snapshot
type DerivedStrikeMetrics struct {
	Strike             float64 `json:"strike"`
	OIDiff             int64   `json:"oi_diff"`
	OISkewRatio        float64 `json:"oi_skew_ratio"` // (ce-pe)/(ce+pe), in [-1, 1]
	CEPERatio          float64 `json:"ce_pe_ratio"`   // ce/(pe+1)
	VolumeOIEfficiency float64 `json:"volume_oi_efficiency"`
	GammaExposure      float64 `json:"gamma_exposure"`
	CETheoretical      float64 `json:"ce_theoretical"`
	PETheoretical      float64 `json:"pe_theoretical"`
	CEMisalignment     float64 `json:"ce_misalignment"`
	PEMisalignment     float64 `json:"pe_misalignment"`
	CEBuildUp          BuildUp `json:"ce_build_up"`
	PEBuildUp          BuildUp `json:"pe_build_up"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
