package analytics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// OISkewOf returns the call-minus-put OI difference and its share of total OI.
// A strike with no open interest on either side has no skew.
func OISkewOf(ceOI, peOI int64) (diff int64, ratio float64) {
	total := ceOI + peOI
	if total == 0 {
		return 0, 0
	}
	diff = ceOI - peOI
	return diff, float64(diff) / float64(total)
}

// ClassifyBuildUp maps the signs of a leg's price and OI changes onto a build-up state
func ClassifyBuildUp(priceChange float64, oiChange int64) BuildUp {
	switch {
	case priceChange > 0 && oiChange > 0:
		return LongBuildUp
	case priceChange < 0 && oiChange > 0:
		return ShortBuildUp
	case priceChange > 0 && oiChange < 0:
		return ShortCovering
	case priceChange < 0 && oiChange < 0:
		return LongUnwinding
	}
	return NeutralBuildUp
}

// VolumeOIEfficiency scores how much of today's volume turned into new positions,
// weighted by how unusual the volume is.
func VolumeOIEfficiency(volume, oiChange int64, avgVolume float64) float64 {
	if avgVolume == 0 || volume == 0 {
		return 0
	}
	v := float64(volume)
	return (v / avgVolume) * (float64(oiChange) / v)
}

// IdentifyBuildup labels above-average volume moves using OI direction and price direction
func IdentifyBuildup(volume, oiChange int64, avgVolume, priceChange float64) BuildupLabel {
	if float64(volume) > avgVolume {
		if oiChange > 0 {
			if priceChange > 0 {
				return FreshLongBuildup
			}
			return FreshShortBuildup
		}
		if oiChange < 0 {
			return PositionUnwinding
		}
	}
	return NeutralBuildup
}

// PremiumMisalignment is the relative gap between market and theoretical premium.
// With no theoretical value the raw market premium is returned.
func PremiumMisalignment(market, theoretical float64) float64 {
	if theoretical == 0 {
		if market != 0 {
			return market
		}
		return 0
	}
	return (market - theoretical) / theoretical
}

// Dominance names the side holding more open interest at a strike
type Dominance string

const (
	CEDominant Dominance = "CE_Dominant"
	PEDominant Dominance = "PE_Dominant"
)

// OIDifference is the per-strike OI comparison row
type OIDifference struct {
	Strike    float64   `json:"strike"`
	OIDiff    int64     `json:"oi_diff"`
	OIRatio   float64   `json:"oi_ratio"`
	Dominance Dominance `json:"dominance"`
}

// ComputeOIDifferences compares call and put OI at every strike, ordered by strike
func ComputeOIDifferences(records []StrikeRecord) []OIDifference {
	out := make([]OIDifference, 0, len(records))
	for _, r := range records {
		d := OIDifference{
			Strike:    r.Strike,
			OIDiff:    r.OIDiff(),
			OIRatio:   float64(r.CEOI) / float64(r.PEOI+1),
			Dominance: PEDominant,
		}
		if d.OIDiff > 0 {
			d.Dominance = CEDominant
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// PutCallRatio is put OI and volume over call OI and volume across the chain.
// A ratio is 0 when its denominator is 0.
type PutCallRatio struct {
	ByOI     float64 `json:"by_oi"`
	ByVolume float64 `json:"by_volume"`
}

// ComputePutCallRatio totals both legs over the chain
func ComputePutCallRatio(records []StrikeRecord) PutCallRatio {
	var ceOI, peOI, ceVol, peVol int64
	for _, r := range records {
		ceOI += r.CEOI
		peOI += r.PEOI
		ceVol += r.CEVolume
		peVol += r.PEVolume
	}

	var pcr PutCallRatio
	if ceOI > 0 {
		pcr.ByOI = float64(peOI) / float64(ceOI)
	}
	if ceVol > 0 {
		pcr.ByVolume = float64(peVol) / float64(ceVol)
	}
	return pcr
}

// MaxPain returns the expiry price at which option writers pay out the least.
// Only listed strikes are candidates; ties resolve to the lower strike.
func MaxPain(records []StrikeRecord) float64 {
	if len(records) == 0 {
		return 0
	}

	best := math.Inf(1)
	bestStrike := 0.0
	for _, candidate := range records {
		var pain float64
		for _, r := range records {
			if candidate.Strike > r.Strike {
				pain += (candidate.Strike - r.Strike) * float64(r.CEOI)
			}
			if candidate.Strike < r.Strike {
				pain += (r.Strike - candidate.Strike) * float64(r.PEOI)
			}
		}
		if pain < best || (pain == best && candidate.Strike < bestStrike) {
			best = pain
			bestStrike = candidate.Strike
		}
	}
	return bestStrike
}

// OIMagnet is a strike whose open interest is likely to pin the underlying
type OIMagnet struct {
	Strike   float64 `json:"strike"`
	TotalOI  int64   `json:"total_oi"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// OIMagnetsAndGaps ranks strikes within band of spot by OI weighted by proximity,
// and reports strikes whose total OI is thin relative to the band median.
func OIMagnetsAndGaps(records []StrikeRecord, spot, band, gapFraction float64, topN int) (magnets, gaps []OIMagnet) {
	if topN <= 0 {
		topN = 10
	}

	var inBand []OIMagnet
	var totals []float64
	for _, r := range records {
		distance := math.Abs(r.Strike - spot)
		if distance > band {
			continue
		}
		total := r.TotalOI()
		inBand = append(inBand, OIMagnet{
			Strike:   r.Strike,
			TotalOI:  total,
			Distance: distance,
			Score:    float64(total) / (distance + 1),
		})
		totals = append(totals, float64(total))
	}
	if len(inBand) == 0 {
		return nil, nil
	}

	sort.Slice(inBand, func(i, j int) bool { return inBand[i].Strike < inBand[j].Strike })

	median, err := stats.Median(totals)
	if err == nil {
		for _, m := range inBand {
			if float64(m.TotalOI) < median*gapFraction {
				gaps = append(gaps, m)
			}
		}
	}

	magnets = make([]OIMagnet, len(inBand))
	copy(magnets, inBand)
	sort.SliceStable(magnets, func(i, j int) bool { return magnets[i].Score > magnets[j].Score })
	if len(magnets) > topN {
		magnets = magnets[:topN]
	}
	return magnets, gaps
}

// PremiumDiscount compares the call/put premium split with spot
type PremiumDiscount struct {
	Strike   float64 `json:"strike"`
	Premium  float64 `json:"premium"`
	Discount float64 `json:"discount"`
}

// ComputePremiumDiscount returns ce-pe and spot-(ce+pe) for a strike
func ComputePremiumDiscount(strike, cePrice, pePrice, spot float64) PremiumDiscount {
	return PremiumDiscount{
		Strike:   strike,
		Premium:  cePrice - pePrice,
		Discount: spot - (cePrice + pePrice),
	}
}

// FindATMStrike returns the listed strike nearest to spot, preferring the lower on ties
func FindATMStrike(strikes []float64, spot float64) float64 {
	atm := 0.0
	best := math.Inf(1)
	for _, k := range strikes {
		d := math.Abs(k - spot)
		if d < best || (d == best && k < atm) {
			best = d
			atm = k
		}
	}
	return atm
}

// Bias is the directional lean read from ATM open interest changes
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// ATMBias leans with the richer ATM leg when that leg is also adding open interest
func ATMBias(atm StrikeRecord) Bias {
	switch {
	case atm.PEPrice > atm.CEPrice && atm.PEOIChange > 0:
		return BiasBearish
	case atm.CEPrice > atm.PEPrice && atm.CEOIChange > 0:
		return BiasBullish
	}
	return BiasNeutral
}
