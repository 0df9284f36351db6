package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolSkewCurve(t *testing.T) {
	t.Run("both wings", func(t *testing.T) {
		ivs := map[float64]float64{
			90:  0.30,
			95:  0.25,
			100: 0.20,
			105: 0.22,
			110: 0.26,
		}
		s := VolSkewCurve(ivs, 100)
		assert.InDelta(t, 0.275, s.LeftAvg, 1e-12)
		assert.InDelta(t, 0.24, s.RightAvg, 1e-12)
		assert.InDelta(t, -0.035, s.OverallSkew, 1e-12)
		assert.InDelta(t, 0.035, s.Steepness, 1e-12)
	})

	t.Run("atm strike is in neither wing", func(t *testing.T) {
		s := VolSkewCurve(map[float64]float64{100: 0.5, 110: 0.2}, 100)
		assert.Equal(t, 0.0, s.LeftAvg)
		assert.InDelta(t, 0.2, s.RightAvg, 1e-12)
		assert.InDelta(t, 0.2, s.OverallSkew, 1e-12)
		assert.InDelta(t, 0.2, s.Steepness, 1e-12)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, SmileSummary{}, VolSkewCurve(nil, 100))
	})

	t.Run("single strike", func(t *testing.T) {
		s := VolSkewCurve(map[float64]float64{95: 0.3}, 100)
		assert.InDelta(t, 0.3, s.LeftAvg, 1e-12)
		assert.InDelta(t, -0.3, s.OverallSkew, 1e-12)
		assert.InDelta(t, 0.3, s.Steepness, 1e-12, "an empty wing counts as zero")
	})
}

func TestVolSmileMetric(t *testing.T) {
	assert.InDelta(t, 0.04, VolSmileMetric(0.16, 0.20), 1e-12)
	assert.InDelta(t, -0.02, VolSmileMetric(0.18, 0.16), 1e-12)
}
