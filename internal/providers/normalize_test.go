package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwaldner/chainsignal/internal/dto"
)

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("16-Oct-2025 15:30:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC)))

	ts, err = ParseTimestamp("2025-10-16T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.UTC().Hour())

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestNormalizeNSE(t *testing.T) {
	chain := dto.NSEChain{Records: dto.NSERecords{
		ExpiryDates: []string{"30-Oct-2025", "23-Oct-2025"},
		Data: []dto.NSERow{
			{StrikePrice: 20100, ExpiryDate: "23-Oct-2025",
				CE: &dto.NSELeg{OpenInterest: 10, LastPrice: 50, Change: 5, ImpliedVolatility: 12.5, UnderlyingValue: 20010}},
			{StrikePrice: 20000, ExpiryDate: "23-Oct-2025",
				PE: &dto.NSELeg{OpenInterest: 20, LastPrice: 80, PrevClose: 70}},
			{StrikePrice: 20000, ExpiryDate: "30-Oct-2025",
				CE: &dto.NSELeg{OpenInterest: 99}},
		},
	}}

	snap, expiries, err := NormalizeNSE(chain, "NIFTY", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"23-Oct-2025", "30-Oct-2025"}, expiries)
	assert.Equal(t, 20010.0, snap.Spot, "spot falls back to the legs")
	require.Len(t, snap.Records, 2)
	assert.Equal(t, 20000.0, snap.Records[0].Strike)

	ce := snap.Records[1]
	require.NotNil(t, ce.CEPricePrev)
	assert.Equal(t, 45.0, *ce.CEPricePrev)
	require.NotNil(t, ce.CEIV)
	assert.InDelta(t, 0.125, *ce.CEIV, 1e-12)
	assert.Nil(t, ce.PEPricePrev)

	pe := snap.Records[0]
	require.NotNil(t, pe.PEPricePrev)
	assert.Equal(t, 70.0, *pe.PEPricePrev)

	_, _, err = NormalizeNSE(dto.NSEChain{}, "NIFTY", "")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestNormalizeNSEWithoutExpiry(t *testing.T) {
	chain := dto.NSEChain{Records: dto.NSERecords{
		Data: []dto.NSERow{{StrikePrice: 100}},
	}}

	var err error
	require.NotPanics(t, func() {
		_, _, err = NormalizeNSE(chain, "NIFTY", "")
	})
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestExpiryOIFromNSE(t *testing.T) {
	rows := []dto.NSERow{
		{StrikePrice: 100, ExpiryDate: "23-Oct-2025",
			CE: &dto.NSELeg{OpenInterest: 10}, PE: &dto.NSELeg{OpenInterest: 5}},
		{StrikePrice: 100, ExpiryDate: "30-Oct-2025", CE: &dto.NSELeg{OpenInterest: 7}},
		{StrikePrice: 110},
	}

	t.Run("records", func(t *testing.T) {
		oi := ExpiryOIFromNSE(dto.NSEChain{Records: dto.NSERecords{Data: rows}})
		assert.Equal(t, map[string]map[float64]int64{
			"23-Oct-2025": {100: 15},
			"30-Oct-2025": {100: 7},
		}, oi)
	})

	t.Run("filtered only", func(t *testing.T) {
		chain := dto.NSEChain{Filtered: dto.NSEFiltered{Data: rows}}
		oi := ExpiryOIFromNSE(chain)
		require.Len(t, oi, 2)
		assert.Equal(t, int64(15), oi["23-Oct-2025"][100])

		snap, _, err := NormalizeNSE(chain, "NIFTY", "")
		require.NoError(t, err)
		assert.Equal(t, "23-Oct-2025", snap.Expiry)
	})
}

func TestPivotRows(t *testing.T) {
	rows := []dto.ChainCSVRow{
		{Underlying: "NIFTY", Spot: 100, Expiry: "M1", Strike: 100, OptionType: "CE", LastPrice: 5, PrevPrice: "4", OpenInterest: 10},
		{Underlying: "NIFTY", Spot: 100, Expiry: "W1", Strike: 100, OptionType: "call", LastPrice: 3, OpenInterest: 7},
		{Underlying: "NIFTY", Spot: 100, Expiry: "W1", Strike: 100, OptionType: "PE", LastPrice: 2, IV: "0.2", OpenInterest: 9},
	}

	snap, expiries, err := PivotRows(rows, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"W1", "M1"}, expiries)
	assert.Equal(t, "W1", snap.Expiry)
	assert.Equal(t, "NIFTY", snap.Symbol)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, int64(7), snap.Records[0].CEOI)
	assert.Equal(t, int64(9), snap.Records[0].PEOI)
	assert.Nil(t, snap.Records[0].CEPricePrev)

	oi := ExpiryOIFromRows(rows)
	assert.Equal(t, int64(16), oi["W1"][100])
	assert.Equal(t, int64(10), oi["M1"][100])

	rows[0].OptionType = "FUT"
	_, _, err = PivotRows(rows, "NIFTY", "M1")
	assert.Error(t, err)
}
