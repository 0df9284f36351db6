package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	want := time.Date(2025, time.October, 23, 0, 0, 0, 0, time.UTC)
	for _, label := range []string{"23-Oct-2025", "2025-10-23", "23Oct2025", "23-10-2025"} {
		t.Run(label, func(t *testing.T) {
			got, err := ParseExpiry(label)
			require.NoError(t, err)
			assert.True(t, want.Equal(got))
		})
	}

	_, err := ParseExpiry("W1")
	assert.Error(t, err)
}

func TestYearFraction(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, YearFraction(from, from.AddDate(0, 0, 365), 365), 1e-12)
	assert.InDelta(t, 30.0/365, YearFraction(from, from.AddDate(0, 0, 30), 0), 1e-12)
	assert.Equal(t, 0.0, YearFraction(from, from.Add(-time.Hour), 365))
	assert.Equal(t, 0.0, YearFraction(from, from, 365))
}

func TestTimeToExpiry(t *testing.T) {
	at := time.Date(2025, 10, 22, 15, 30, 0, 0, time.UTC)
	tau, err := TimeToExpiry(at, "23-Oct-2025", 365)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/365, tau, 1e-12)

	after := time.Date(2025, 10, 23, 16, 0, 0, 0, time.UTC)
	tau, err = TimeToExpiry(after, "23-Oct-2025", 365)
	require.NoError(t, err)
	assert.Equal(t, 0.0, tau)

	_, err = TimeToExpiry(at, "someday", 365)
	assert.Error(t, err)
}

func TestNextWeeklyExpiry(t *testing.T) {
	// 2025-10-20 is a Monday
	monday := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "23-Oct-2025", NextWeeklyExpiry(monday, time.Thursday))

	thursdayMorning := time.Date(2025, 10, 23, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, "23-Oct-2025", NextWeeklyExpiry(thursdayMorning, time.Thursday))

	thursdayClose := time.Date(2025, 10, 23, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "30-Oct-2025", NextWeeklyExpiry(thursdayClose, time.Thursday))
}

func TestNextMonthlyExpiry(t *testing.T) {
	// last Thursday of October 2025 is the 30th, of November the 27th
	early := time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "30-Oct-2025", NextMonthlyExpiry(early, time.Thursday))

	afterClose := time.Date(2025, 10, 30, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, "27-Nov-2025", NextMonthlyExpiry(afterClose, time.Thursday))

	december := time.Date(2025, 12, 31, 16, 0, 0, 0, time.UTC)
	assert.Equal(t, "29-Jan-2026", NextMonthlyExpiry(december, time.Thursday))
}
