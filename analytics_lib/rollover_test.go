package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortExpiries(t *testing.T) {
	t.Run("calendar dates", func(t *testing.T) {
		got := SortExpiries([]string{"30-Oct-2025", "23-Oct-2025", "27-Nov-2025"})
		assert.Equal(t, []string{"23-Oct-2025", "30-Oct-2025", "27-Nov-2025"}, got)
	})

	t.Run("iso dates", func(t *testing.T) {
		got := SortExpiries([]string{"2026-01-29", "2025-12-30"})
		assert.Equal(t, []string{"2025-12-30", "2026-01-29"}, got)
	})

	t.Run("tenors", func(t *testing.T) {
		got := SortExpiries([]string{"M1", "W2", "Q1", "W1", "3M"})
		assert.Equal(t, []string{"W1", "W2", "M1", "3M", "Q1"}, got)
	})

	t.Run("opaque labels sort lexically after known ones", func(t *testing.T) {
		got := SortExpiries([]string{"far", "W1", "near", "02-Jan-2026"})
		assert.Equal(t, []string{"02-Jan-2026", "W1", "far", "near"}, got)
	})
}

func TestCrossExpiryRollover(t *testing.T) {
	oi := map[string]map[float64]int64{
		"W1": {100: 200, 105: 50},
		"M1": {100: 250, 105: 300},
	}

	report := CrossExpiryRollover(oi, 1.2)
	assert.Equal(t, []string{"W1", "M1"}, report.Expiries)
	require.Len(t, report.Strikes, 2)

	at100, ok := report.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, []int64{200, 250}, at100.Series)
	assert.Equal(t, int64(200), at100.Near)
	assert.Equal(t, int64(250), at100.Far)
	assert.Equal(t, RolloverToFar, at100.Signal)

	at105, ok := report.Lookup(105)
	require.True(t, ok)
	assert.Equal(t, int64(50), at105.Near)
	assert.Equal(t, int64(300), at105.Far)
	assert.Equal(t, RolloverToFar, at105.Signal)

	_, ok = report.Lookup(110)
	assert.False(t, ok)
}

func TestCrossExpiryRolloverOrdered(t *testing.T) {
	t.Run("missing strikes count as zero", func(t *testing.T) {
		report := CrossExpiryRolloverOrdered([]ExpiryOpenInterest{
			{Expiry: "E1", OpenInterest: map[float64]int64{100: 100}},
			{Expiry: "E2", OpenInterest: map[float64]int64{110: 500}},
		}, 1.2)

		at110, ok := report.Lookup(110)
		require.True(t, ok)
		assert.Equal(t, []int64{0, 500}, at110.Series)
		assert.Equal(t, RolloverStable, at110.Signal, "nothing near to roll from")

		at100, _ := report.Lookup(100)
		assert.Equal(t, RolloverStable, at100.Signal)
	})

	t.Run("single expiry is all near", func(t *testing.T) {
		report := CrossExpiryRolloverOrdered([]ExpiryOpenInterest{
			{Expiry: "E1", OpenInterest: map[float64]int64{100: 100}},
		}, 1.2)
		at100, _ := report.Lookup(100)
		assert.Equal(t, int64(100), at100.Near)
		assert.Equal(t, int64(0), at100.Far)
		assert.Equal(t, RolloverStable, at100.Signal)
	})

	t.Run("odd count puts the middle expiry far", func(t *testing.T) {
		report := CrossExpiryRolloverOrdered([]ExpiryOpenInterest{
			{Expiry: "E1", OpenInterest: map[float64]int64{100: 100}},
			{Expiry: "E2", OpenInterest: map[float64]int64{100: 70}},
			{Expiry: "E3", OpenInterest: map[float64]int64{100: 60}},
		}, 1.2)
		at100, _ := report.Lookup(100)
		assert.Equal(t, int64(100), at100.Near)
		assert.Equal(t, int64(130), at100.Far)
		assert.Equal(t, RolloverToFar, at100.Signal)
	})

	t.Run("exactly at threshold is stable", func(t *testing.T) {
		report := CrossExpiryRolloverOrdered([]ExpiryOpenInterest{
			{Expiry: "E1", OpenInterest: map[float64]int64{100: 100}},
			{Expiry: "E2", OpenInterest: map[float64]int64{100: 120}},
		}, 1.2)
		at100, _ := report.Lookup(100)
		assert.Equal(t, RolloverStable, at100.Signal)
	})

	t.Run("non-positive threshold uses default", func(t *testing.T) {
		report := CrossExpiryRolloverOrdered([]ExpiryOpenInterest{
			{Expiry: "E1", OpenInterest: map[float64]int64{100: 100}},
			{Expiry: "E2", OpenInterest: map[float64]int64{100: 121}},
		}, 0)
		at100, _ := report.Lookup(100)
		assert.Equal(t, RolloverToFar, at100.Signal)
	})

	t.Run("empty", func(t *testing.T) {
		report := CrossExpiryRolloverOrdered(nil, 1.2)
		assert.Empty(t, report.Strikes)
		assert.Empty(t, report.Expiries)
	})
}
