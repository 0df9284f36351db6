package analytics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ExpiryLayouts are the calendar formats recognised in expiry labels
var ExpiryLayouts = []string{
	"02-Jan-2006",
	"2006-01-02",
	"02Jan2006",
	"02-01-2006",
}

var tenorPattern = regexp.MustCompile(`^(?:([DWMQY])(\d+)|(\d+)([DWMQY]))$`)

var tenorDays = map[string]int{"D": 1, "W": 7, "M": 30, "Q": 91, "Y": 365}

// ParseExpiryDate parses an expiry label in any of ExpiryLayouts
func ParseExpiryDate(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	for _, layout := range ExpiryLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// tenorLength converts labels such as W1, M2 or 3M into an approximate day count
func tenorLength(label string) (int, bool) {
	m := tenorPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(label)))
	if m == nil {
		return 0, false
	}
	unit, count := m[1], m[2]
	if unit == "" {
		unit, count = m[4], m[3]
	}
	n, err := strconv.Atoi(count)
	if err != nil {
		return 0, false
	}
	return n * tenorDays[unit], true
}

type expiryKey struct {
	label string
	rank  int // 0 calendar date, 1 tenor, 2 opaque
	when  time.Time
	days  int
}

func keyOf(label string) expiryKey {
	if t, ok := ParseExpiryDate(label); ok {
		return expiryKey{label: label, rank: 0, when: t}
	}
	if d, ok := tenorLength(label); ok {
		return expiryKey{label: label, rank: 1, days: d}
	}
	return expiryKey{label: label, rank: 2}
}

// SortExpiries returns the labels nearest-first: calendar dates chronologically,
// then tenor labels by length, then anything else lexically.
func SortExpiries(labels []string) []string {
	keys := make([]expiryKey, len(labels))
	for i, l := range labels {
		keys[i] = keyOf(l)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		switch a.rank {
		case 0:
			if !a.when.Equal(b.when) {
				return a.when.Before(b.when)
			}
		case 1:
			if a.days != b.days {
				return a.days < b.days
			}
		}
		return a.label < b.label
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.label
	}
	return out
}
