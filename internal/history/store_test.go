package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

func snapshot(expiry string, ceVol, peVol, ceOI, peOI int64) analytics.OptionChainSnapshot {
	return analytics.OptionChainSnapshot{
		Symbol: "NIFTY",
		Spot:   20000,
		Expiry: expiry,
		Records: []analytics.StrikeRecord{
			{Strike: 20000, CEVolume: ceVol, PEVolume: peVol, CEOI: ceOI, PEOI: peOI},
		},
	}
}

func TestEmptyStore(t *testing.T) {
	s := NewStore(0)
	assert.Nil(t, s.AvgVolume("NIFTY", "W1"))
	assert.Nil(t, s.PrevOIDiff("NIFTY", "W1"))
	assert.Nil(t, s.ExpiryOI("NIFTY"))
	assert.Zero(t, s.Updates("NIFTY", "W1"))
	assert.Empty(t, s.Symbols())
}

func TestRollingAverageVolume(t *testing.T) {
	s := NewStore(2)
	s.Record(snapshot("W1", 100, 100, 0, 0)) // 200
	s.Record(snapshot("W1", 200, 200, 0, 0)) // 400
	assert.InDelta(t, 300.0, s.AvgVolume("NIFTY", "W1")[20000], 1e-9)

	s.Record(snapshot("W1", 300, 300, 0, 0)) // 600, first observation drops out
	assert.InDelta(t, 500.0, s.AvgVolume("NIFTY", "W1")[20000], 1e-9)
	assert.Equal(t, 3, s.Updates("NIFTY", "W1"))
}

func TestPrevOIDiffAndExpiryOI(t *testing.T) {
	s := NewStore(5)
	s.Record(snapshot("W1", 0, 0, 500, 200))
	s.Record(snapshot("M1", 0, 0, 900, 100))

	prev := s.PrevOIDiff("NIFTY", "W1")
	assert.Equal(t, int64(300), prev[20000])

	oi := s.ExpiryOI("NIFTY")
	require.Len(t, oi, 2)
	assert.Equal(t, int64(700), oi["W1"][20000])
	assert.Equal(t, int64(1000), oi["M1"][20000])

	// returned maps are copies
	oi["W1"][20000] = 0
	assert.Equal(t, int64(700), s.ExpiryOI("NIFTY")["W1"][20000])

	s.SetExpiryOI("NIFTY", "Q1", map[float64]int64{20000: 42})
	assert.Equal(t, int64(42), s.ExpiryOI("NIFTY")["Q1"][20000])
	assert.Equal(t, []string{"NIFTY"}, s.Symbols())
}

func TestConcurrentRecord(t *testing.T) {
	s := NewStore(10)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(snapshot("W1", 10, 10, 1, 1))
			_ = s.AvgVolume("NIFTY", "W1")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Updates("NIFTY", "W1"))
	assert.InDelta(t, 20.0, s.AvgVolume("NIFTY", "W1")[20000], 1e-9)
}
