package utils

import (
	"fmt"
	"time"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// Options stop trading at 15:30 exchange time on the expiry date
const (
	closeHour   = 15
	closeMinute = 30
)

// ParseExpiry parses an NSE style (23-Oct-2025), ISO (2025-10-23) or compact (23Oct2025) expiry
func ParseExpiry(expiry string) (time.Time, error) {
	t, ok := analytics.ParseExpiryDate(expiry)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognised expiry date %q", expiry)
	}
	return t, nil
}

// ExpiryClose returns the moment trading stops on the expiry date, in loc
func ExpiryClose(expiry string, loc *time.Location) (time.Time, error) {
	d, err := ParseExpiry(expiry)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), closeHour, closeMinute, 0, 0, loc), nil
}

// YearFraction is the time between from and to in years of basis days.
// An expired contract has no time left.
func YearFraction(from, to time.Time, basis float64) float64 {
	if basis <= 0 {
		basis = 365
	}
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return d.Hours() / 24 / basis
}

// TimeToExpiry is YearFraction from the snapshot time to the close of the expiry date
func TimeToExpiry(at time.Time, expiry string, basis float64) (float64, error) {
	end, err := ExpiryClose(expiry, at.Location())
	if err != nil {
		return 0, err
	}
	return YearFraction(at, end, basis), nil
}

// NextWeeklyExpiry returns the next expiry falling on weekday. On the expiry day itself
// the same day is returned until the close, after which the following week is used.
func NextWeeklyExpiry(from time.Time, weekday time.Weekday) string {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}

	cutoff := time.Date(day.Year(), day.Month(), day.Day(), closeHour, closeMinute, 0, 0, from.Location())
	if !from.Before(cutoff) {
		day = day.AddDate(0, 0, 7)
	}
	return day.Format("02-Jan-2006")
}

// NextMonthlyExpiry returns the last weekday of the month on or after from,
// rolling into next month once this month's expiry has closed
func NextMonthlyExpiry(from time.Time, weekday time.Weekday) string {
	last := lastWeekdayOfMonth(from.Year(), from.Month(), weekday, from.Location())

	cutoff := time.Date(last.Year(), last.Month(), last.Day(), closeHour, closeMinute, 0, 0, from.Location())
	if !from.Before(cutoff) {
		next := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, from.Location())
		last = lastWeekdayOfMonth(next.Year(), next.Month(), weekday, from.Location())
	}
	return last.Format("02-Jan-2006")
}

func lastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, loc *time.Location) time.Time {
	// day 0 of the following month is the last day of this one
	d := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
