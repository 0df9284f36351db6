package analytics

import "time"

// ChainSummary holds the chain-wide readings of a snapshot
type ChainSummary struct {
	ATMStrike          float64      `json:"atm_strike"`
	ATMBias            Bias         `json:"atm_bias"`
	PutCallRatio       PutCallRatio `json:"put_call_ratio"`
	MaxPain            float64      `json:"max_pain"`
	CarryCost          float64      `json:"carry_cost"`
	VolSmileMetric     float64      `json:"vol_smile_metric"`
	TimeDecayCurvature float64      `json:"time_decay_curvature"`
	Magnets            []OIMagnet   `json:"magnets"`
	Gaps               []OIMagnet   `json:"gaps"`
}

// ReportRow is the flattened per-strike output of an analysis
type ReportRow struct {
	DerivedStrikeMetrics

	CEPrice   float64        `json:"ce_price"`
	PEPrice   float64        `json:"pe_price"`
	Delta     float64        `json:"delta"`
	Gamma     float64        `json:"gamma"`
	Dominance Dominance      `json:"dominance"`
	Premium   float64        `json:"premium"`
	Discount  float64        `json:"discount"`
	Signal    SignalKind     `json:"signal"`
	Reason    string         `json:"reason"`
	Score     int            `json:"score"`
	Rollover  RolloverSignal `json:"rollover,omitempty"`
}

// ChainReport is the composed result of every dimension for one snapshot.
// Rows carry zero values for dimensions listed in Errors.
type ChainReport struct {
	RunID         string           `json:"run_id,omitempty"`
	Symbol        string           `json:"symbol"`
	Expiry        string           `json:"expiry,omitempty"`
	Spot          float64          `json:"spot"`
	Timestamp     time.Time        `json:"timestamp"`
	TauYears      float64          `json:"tau_years"`
	ExecutionMode string           `json:"execution_mode"`
	Rows          []ReportRow      `json:"rows"`
	Smile         SmileSummary     `json:"smile"`
	TopBuildups   []RankedBuildup  `json:"top_buildups"`
	Signals       []StrikeSignal   `json:"signals"`
	Rollover      *RolloverReport  `json:"rollover,omitempty"`
	Summary       ChainSummary     `json:"summary"`
	Errors        []DimensionError `json:"errors,omitempty"`
}

// Failed reports whether the given dimension failed
func (r *ChainReport) Failed(dim Dimension) bool {
	for _, e := range r.Errors {
		if e.Dimension == dim {
			return true
		}
	}
	return false
}

// ActiveSignals returns the strikes that produced a CALL_BUY or PUT_BUY
func (r *ChainReport) ActiveSignals() []StrikeSignal {
	var out []StrikeSignal
	for _, s := range r.Signals {
		if s.Signal != SignalNone {
			out = append(out, s)
		}
	}
	return out
}
