package analytics

import (
	"math"
	"sort"
)

// Analyzer computes the per-strike analytics of one snapshot
type Analyzer interface {
	OISkewMap() map[float64]OISkew
	VolumeOIEfficiencyMap(avgVolume map[float64]float64) map[float64]float64
	GammaExposureMap(tauYears float64) map[float64]float64
	VolSmile(atmStrike float64) SmileSummary
	TheoreticalVsMarketMap(tauYears float64) map[float64]PremiumComparison
	TopBuildups(avgVolume map[float64]float64, topN int) []RankedBuildup
}

// ChainAnalyzer is the Analyzer over an OptionChainSnapshot
type ChainAnalyzer struct {
	snapshot OptionChainSnapshot
	params   Params
}

var _ Analyzer = (*ChainAnalyzer)(nil)

// NewChainAnalyzer binds a snapshot to its tunables. The snapshot is copied.
func NewChainAnalyzer(snapshot OptionChainSnapshot, params Params) *ChainAnalyzer {
	return &ChainAnalyzer{
		snapshot: snapshot.Sorted(),
		params:   params.withDefaults(),
	}
}

// Snapshot returns the analyzer's strike-ordered copy of the snapshot
func (a *ChainAnalyzer) Snapshot() OptionChainSnapshot {
	return a.snapshot
}

// OISkewMap returns the OI skew of every strike
func (a *ChainAnalyzer) OISkewMap() map[float64]OISkew {
	out := make(map[float64]OISkew, len(a.snapshot.Records))
	for _, r := range a.snapshot.Records {
		diff, ratio := OISkewOf(r.CEOI, r.PEOI)
		out[r.Strike] = OISkew{Diff: diff, Ratio: ratio}
	}
	return out
}

// VolumeOIEfficiencyMap scores combined CE+PE volume and OI change against the
// caller's average volume per strike. Strikes without an average score 0.
func (a *ChainAnalyzer) VolumeOIEfficiencyMap(avgVolume map[float64]float64) map[float64]float64 {
	out := make(map[float64]float64, len(a.snapshot.Records))
	for _, r := range a.snapshot.Records {
		out[r.Strike] = VolumeOIEfficiency(r.CEVolume+r.PEVolume, r.CEOIChange+r.PEOIChange, avgVolume[r.Strike])
	}
	return out
}

// GammaExposureMap prices gamma at each strike with the mean available IV,
// falling back to the default volatility, and scales it by total OI.
func (a *ChainAnalyzer) GammaExposureMap(tauYears float64) map[float64]float64 {
	s := a.snapshot
	out := make(map[float64]float64, len(s.Records))
	for _, r := range s.Records {
		vol, ok := r.meanIV()
		if !ok {
			vol = a.params.DefaultVolatility
		}
		out[r.Strike] = GammaExposure(s.Spot, r.Strike, s.RiskFreeRate, vol, tauYears,
			r.TotalOI(), a.params.ContractSize, a.params.RelativeStep)
	}
	return out
}

// IVByStrike averages the available CE and PE IVs per strike, skipping strikes with neither
func (a *ChainAnalyzer) IVByStrike() map[float64]float64 {
	out := make(map[float64]float64, len(a.snapshot.Records))
	for _, r := range a.snapshot.Records {
		if iv, ok := r.meanIV(); ok {
			out[r.Strike] = iv
		}
	}
	return out
}

// VolSmile summarises the smile around atmStrike
func (a *ChainAnalyzer) VolSmile(atmStrike float64) SmileSummary {
	return VolSkewCurve(a.IVByStrike(), atmStrike)
}

// TheoreticalVsMarketMap compares market premiums with Black-Scholes values.
// The call uses its own IV (or the default); the put is taken from parity on that call.
func (a *ChainAnalyzer) TheoreticalVsMarketMap(tauYears float64) map[float64]PremiumComparison {
	s := a.snapshot
	out := make(map[float64]PremiumComparison, len(s.Records))
	for _, r := range s.Records {
		vol := a.params.DefaultVolatility
		if r.CEIV != nil {
			vol = *r.CEIV
		}

		ceTh := TheoreticalCallPrice(s.Spot, r.Strike, s.RiskFreeRate, vol, tauYears)
		peTh := putFromCall(ceTh, s.Spot, r.Strike, s.RiskFreeRate, tauYears)

		peRef := peTh
		if peRef == 0 {
			peRef = r.PEPrice
		}

		out[r.Strike] = PremiumComparison{
			CETheoretical:  ceTh,
			PETheoretical:  peTh,
			CEMarket:       r.CEPrice,
			PEMarket:       r.PEPrice,
			CEMisalignment: PremiumMisalignment(r.CEPrice, ceTh),
			PEMisalignment: PremiumMisalignment(r.PEPrice, peRef),
		}
	}
	return out
}

// TopBuildups ranks strikes by absolute volume-OI efficiency and labels each one.
// Equal scores are ordered by strike so the ranking is stable.
func (a *ChainAnalyzer) TopBuildups(avgVolume map[float64]float64, topN int) []RankedBuildup {
	if topN <= 0 {
		topN = a.params.TopN
	}

	eff := a.VolumeOIEfficiencyMap(avgVolume)
	ranked := make([]RankedBuildup, 0, len(eff))
	for _, r := range a.snapshot.Records {
		ranked = append(ranked, RankedBuildup{
			Strike:     r.Strike,
			Efficiency: eff[r.Strike],
			Label: IdentifyBuildup(r.CEVolume+r.PEVolume, r.CEOIChange+r.PEOIChange,
				avgVolume[r.Strike], r.UnderlyingChange),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := math.Abs(ranked[i].Efficiency), math.Abs(ranked[j].Efficiency)
		if ai != aj {
			return ai > aj
		}
		return ranked[i].Strike < ranked[j].Strike
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
