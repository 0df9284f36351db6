package analytics

import "sort"

// DefaultRolloverThreshold is the far/near OI ratio above which positions are rolling
const DefaultRolloverThreshold = 1.2

// ExpiryOpenInterest is the open interest per strike for one expiry
type ExpiryOpenInterest struct {
	Expiry       string            `json:"expiry"`
	OpenInterest map[float64]int64 `json:"-"`
}

// StrikeRollover is the cross-expiry view of one strike
type StrikeRollover struct {
	Strike float64        `json:"strike"`
	Series []int64        `json:"series"`
	Near   int64          `json:"near"`
	Far    int64          `json:"far"`
	Signal RolloverSignal `json:"signal"`
}

// RolloverReport holds every strike's OI series in the order of Expiries
type RolloverReport struct {
	Expiries []string         `json:"expiries"`
	Strikes  []StrikeRollover `json:"strikes"`
}

// Lookup returns the rollover entry for a strike
func (r RolloverReport) Lookup(strike float64) (StrikeRollover, bool) {
	i := sort.Search(len(r.Strikes), func(i int) bool { return r.Strikes[i].Strike >= strike })
	if i < len(r.Strikes) && r.Strikes[i].Strike == strike {
		return r.Strikes[i], true
	}
	return StrikeRollover{}, false
}

// CrossExpiryRollover orders the expiries nearest-first with SortExpiries and
// then applies CrossExpiryRolloverOrdered.
func CrossExpiryRollover(oiByExpiry map[string]map[float64]int64, threshold float64) RolloverReport {
	labels := make([]string, 0, len(oiByExpiry))
	for label := range oiByExpiry {
		labels = append(labels, label)
	}

	ordered := make([]ExpiryOpenInterest, 0, len(labels))
	for _, label := range SortExpiries(labels) {
		ordered = append(ordered, ExpiryOpenInterest{Expiry: label, OpenInterest: oiByExpiry[label]})
	}
	return CrossExpiryRolloverOrdered(ordered, threshold)
}

// CrossExpiryRolloverOrdered compares the near half of the expiries with the far half
// for every strike seen in any expiry. A strike missing from an expiry counts as zero OI.
// The first max(1, n/2) expiries are near, the rest far.
func CrossExpiryRolloverOrdered(series []ExpiryOpenInterest, threshold float64) RolloverReport {
	if threshold <= 0 {
		threshold = DefaultRolloverThreshold
	}

	report := RolloverReport{Expiries: make([]string, len(series))}
	seen := make(map[float64]struct{})
	for i, e := range series {
		report.Expiries[i] = e.Expiry
		for strike := range e.OpenInterest {
			seen[strike] = struct{}{}
		}
	}

	strikes := make([]float64, 0, len(seen))
	for strike := range seen {
		strikes = append(strikes, strike)
	}
	sort.Float64s(strikes)

	nearCount := len(series) / 2
	if nearCount < 1 {
		nearCount = 1
	}

	report.Strikes = make([]StrikeRollover, 0, len(strikes))
	for _, strike := range strikes {
		entry := StrikeRollover{Strike: strike, Series: make([]int64, len(series))}
		for i, e := range series {
			oi := e.OpenInterest[strike]
			entry.Series[i] = oi
			if i < nearCount {
				entry.Near += oi
			} else {
				entry.Far += oi
			}
		}

		entry.Signal = RolloverStable
		if entry.Near > 0 && float64(entry.Far) > float64(entry.Near)*threshold {
			entry.Signal = RolloverToFar
		}
		report.Strikes = append(report.Strikes, entry)
	}
	return report
}
