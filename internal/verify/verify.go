// Package verify checks the pricing model against reference values and put-call parity.
package verify

import (
	"math"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// CDFReference holds standard normal CDF values to 16 significant digits
var CDFReference = []struct {
	X, Expected float64
}{
	{-3, 0.0013498980316301},
	{-1.96, 0.024997895148220435},
	{-1, 0.15865525393145707},
	{0, 0.5},
	{0.5, 0.6914624612740131},
	{1, 0.8413447460685429},
	{1.96, 0.9750021048517795},
	{2.5, 0.9937903346742238},
}

// CDFCheck is one NormalCDF comparison
type CDFCheck struct {
	X        float64 `json:"x"`
	Expected float64 `json:"expected"`
	Got      float64 `json:"got"`
	AbsError float64 `json:"abs_error"`
	Pass     bool    `json:"pass"`
}

// CheckNormalCDF compares NormalCDF with every reference value
func CheckNormalCDF(tolerance float64) []CDFCheck {
	out := make([]CDFCheck, 0, len(CDFReference))
	for _, ref := range CDFReference {
		got := analytics.NormalCDF(ref.X)
		abs := math.Abs(got - ref.Expected)
		out = append(out, CDFCheck{
			X:        ref.X,
			Expected: ref.Expected,
			Got:      got,
			AbsError: abs,
			Pass:     abs <= tolerance,
		})
	}
	return out
}

// ParityRow is the put-call parity residual C - P - (S - K·e^(-rτ)) at one strike.
// The model residual must vanish; the market residual shows how far quotes stray.
type ParityRow struct {
	Strike         float64 `json:"strike"`
	Volatility     float64 `json:"volatility"`
	ModelResidual  float64 `json:"model_residual"`
	MarketResidual float64 `json:"market_residual"`
}

// ParityResiduals prices every strike of snap at its mean IV, or defaultVol when it has none
func ParityResiduals(snap analytics.OptionChainSnapshot, tau, defaultVol float64) []ParityRow {
	snap = snap.Sorted()
	out := make([]ParityRow, 0, len(snap.Records))
	for _, r := range snap.Records {
		vol := defaultVol
		switch {
		case r.CEIV != nil && r.PEIV != nil:
			vol = (*r.CEIV + *r.PEIV) / 2
		case r.CEIV != nil:
			vol = *r.CEIV
		case r.PEIV != nil:
			vol = *r.PEIV
		}

		forward := snap.Spot - r.Strike*math.Exp(-snap.RiskFreeRate*tau)
		call := analytics.TheoreticalCallPrice(snap.Spot, r.Strike, snap.RiskFreeRate, vol, tau)
		put := analytics.TheoreticalPutPrice(snap.Spot, r.Strike, snap.RiskFreeRate, vol, tau)

		out = append(out, ParityRow{
			Strike:         r.Strike,
			Volatility:     vol,
			ModelResidual:  call - put - forward,
			MarketResidual: r.CEPrice - r.PEPrice - forward,
		})
	}
	return out
}

// MaxModelResidual returns the largest absolute model residual
func MaxModelResidual(rows []ParityRow) float64 {
	var worst float64
	for _, r := range rows {
		worst = math.Max(worst, math.Abs(r.ModelResidual))
	}
	return worst
}
