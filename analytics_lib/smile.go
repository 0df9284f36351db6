package analytics

import "math"

// VolSkewCurve summarises the smile around the ATM strike.
// Strikes below ATM form the left wing and strikes above it the right wing;
// the ATM strike itself belongs to neither. Empty wings average to zero.
// Steepness is the gap between the higher and the lower wing average.
func VolSkewCurve(ivByStrike map[float64]float64, atm float64) SmileSummary {
	if len(ivByStrike) == 0 {
		return SmileSummary{}
	}

	var leftSum, rightSum float64
	var leftN, rightN int
	for strike, iv := range ivByStrike {
		switch {
		case strike < atm:
			leftSum += iv
			leftN++
		case strike > atm:
			rightSum += iv
			rightN++
		}
	}

	var s SmileSummary
	if leftN > 0 {
		s.LeftAvg = leftSum / float64(leftN)
	}
	if rightN > 0 {
		s.RightAvg = rightSum / float64(rightN)
	}
	s.OverallSkew = s.RightAvg - s.LeftAvg
	s.Steepness = math.Abs(s.RightAvg - s.LeftAvg)
	return s
}

// VolSmileMetric is the OTM volatility premium over ATM
func VolSmileMetric(atmIV, otmIV float64) float64 {
	return otmIV - atmIV
}
