package analytics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRejectsInvalidSnapshot(t *testing.T) {
	e := NewEngine(DefaultParams())

	_, err := e.Analyze(OptionChainSnapshot{Symbol: "X", Spot: 0}, Inputs{})
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))

	dup := sampleSnapshot()
	dup.Records = append(dup.Records, dup.Records[0])
	_, err = e.Analyze(dup, Inputs{})
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))
}

func TestEngineAnalyze(t *testing.T) {
	e := NewEngineForced("sequential", DefaultParams())
	report, err := e.Analyze(sampleSnapshot(), Inputs{TauYears: 7.0 / 365})
	require.NoError(t, err)

	assert.Equal(t, "NIFTY", report.Symbol)
	assert.Equal(t, "sequential", report.ExecutionMode)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Rows, 4)

	strikes := []float64{19900, 20000, 20100, 20200}
	for i, row := range report.Rows {
		assert.Equal(t, strikes[i], row.Strike)
	}

	bySignal := map[float64]StrikeSignal{}
	for _, s := range report.Signals {
		bySignal[s.Strike] = s
	}
	assert.Equal(t, SignalCallBuy, bySignal[19900].Signal)
	assert.Equal(t, 2, bySignal[19900].Score)
	assert.Equal(t, SignalCallBuy, bySignal[20000].Signal)
	assert.Equal(t, SignalPutBuy, bySignal[20100].Signal)
	assert.Equal(t, 3, bySignal[20100].Score)
	assert.Equal(t, SignalNone, bySignal[20200].Signal)
	assert.Len(t, report.ActiveSignals(), 3)

	row := report.Rows[2]
	assert.Equal(t, ShortBuildUp, row.CEBuildUp)
	assert.Equal(t, ShortCovering, row.PEBuildUp)
	assert.Equal(t, SignalPutBuy, row.Signal)
	assert.Equal(t, CEDominant, row.Dominance)
	assert.Greater(t, row.GammaExposure, 0.0)
	assert.Equal(t, NeutralBuildUp, report.Rows[3].CEBuildUp, "no previous price")

	assert.Equal(t, 20000.0, report.Summary.ATMStrike)
	assert.Equal(t, BiasNeutral, report.Summary.ATMBias)
	assert.InDelta(t, 50.0/20010, report.Summary.CarryCost, 1e-12)
	assert.Contains(t, strikes, report.Summary.MaxPain)
	assert.Nil(t, report.Rollover)
	assert.Empty(t, report.Rows[0].Rollover)
}

func TestEngineModesAgree(t *testing.T) {
	in := Inputs{
		TauYears:   5.0 / 365,
		AvgVolume:  map[float64]float64{19900: 150000, 20000: 300000, 20100: 120000},
		PrevOIDiff: map[float64]int64{20000: -1000},
		ExpiryOI: map[string]map[float64]int64{
			"23-Oct-2025": {20000: 195000, 20100: 120000},
			"30-Oct-2025": {20000: 260000, 20100: 90000},
		},
	}

	seq := NewEngineForced("sequential", DefaultParams())
	par := NewEngineForced("parallel", DefaultParams())
	par.SetWorkers(4)

	a, err := seq.Analyze(sampleSnapshot(), in)
	require.NoError(t, err)
	b, err := par.Analyze(sampleSnapshot(), in)
	require.NoError(t, err)

	assert.Equal(t, "parallel", b.ExecutionMode)
	b.ExecutionMode = a.ExecutionMode
	assert.Equal(t, a, b)

	require.NotNil(t, a.Rollover)
	assert.Equal(t, []string{"23-Oct-2025", "30-Oct-2025"}, a.Rollover.Expiries)
	assert.Equal(t, RolloverToFar, a.Rows[1].Rollover)
	assert.Equal(t, RolloverStable, a.Rows[2].Rollover)
	assert.Equal(t, 3, a.Rows[1].Score, "supplied previous OI difference flips")
}

func TestEngineIsolatesFailingDimension(t *testing.T) {
	snap := sampleSnapshot()
	for i := range snap.Records {
		snap.Records[i].CEIV = nil
		snap.Records[i].PEIV = nil
	}

	report, err := NewEngine(DefaultParams()).Analyze(snap, Inputs{TauYears: 7.0 / 365})
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, DimSmile, report.Errors[0].Dimension)
	assert.Equal(t, KindMissingData, report.Errors[0].Kind)
	assert.True(t, report.Failed(DimSmile))
	assert.False(t, report.Failed(DimGamma))

	assert.Len(t, report.Signals, 4)
	assert.Greater(t, report.Rows[1].GammaExposure, 0.0)
}

func TestEngineRowsCarryOISkew(t *testing.T) {
	snap := sampleSnapshot()
	tau := 7.0 / 365
	report, err := NewEngineForced("sequential", DefaultParams()).Analyze(snap, Inputs{TauYears: tau})
	require.NoError(t, err)

	records := map[float64]StrikeRecord{}
	for _, r := range snap.Records {
		records[r.Strike] = r
	}
	for _, row := range report.Rows {
		r := records[row.Strike]
		diff, ratio := OISkewOf(r.CEOI, r.PEOI)
		assert.Equal(t, diff, row.OIDiff)
		assert.InDelta(t, ratio, row.OISkewRatio, 1e-12, "strike %v", row.Strike)
		assert.GreaterOrEqual(t, row.OISkewRatio, -1.0)
		assert.LessOrEqual(t, row.OISkewRatio, 1.0)
		assert.InDelta(t, float64(r.CEOI)/float64(r.PEOI+1), row.CEPERatio, 1e-12)
	}
	assert.InDelta(t, 0.5, report.Rows[2].OISkewRatio, 1e-12)

	want := GammaExposure(snap.Spot, 20100, snap.RiskFreeRate, 0.14, tau, 120000, 1, DefaultRelativeStep)
	assert.InEpsilon(t, want, report.Rows[2].GammaExposure, 1e-12)
}

func TestEngineReportsNonFiniteDimension(t *testing.T) {
	in := Inputs{
		TauYears:  7.0 / 365,
		AvgVolume: map[float64]float64{20100: math.SmallestNonzeroFloat64},
	}

	report, err := NewEngine(DefaultParams()).Analyze(sampleSnapshot(), in)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, DimEfficiency, report.Errors[0].Dimension)
	assert.Equal(t, KindNonFinite, report.Errors[0].Kind)
	assert.True(t, report.Failed(DimEfficiency))

	require.Len(t, report.Rows, 4)
	for _, row := range report.Rows {
		assert.Equal(t, 0.0, row.VolumeOIEfficiency, "strike %v", row.Strike)
	}
	assert.Len(t, report.Signals, 4)
	assert.Greater(t, report.Rows[2].GammaExposure, 0.0)
	assert.InDelta(t, 0.5, report.Rows[2].OISkewRatio, 1e-12)
	assert.NotZero(t, report.Rows[2].CETheoretical)
}

func TestGuardRecoversPanics(t *testing.T) {
	res := guard(DimSignals, func() Result[int] {
		panic("boom")
	})
	require.NotNil(t, res.Err)
	assert.False(t, res.OK())
	assert.Equal(t, KindInternal, res.Err.Kind)
	assert.Contains(t, res.Err.Error(), "boom")
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.RolloverThreshold = -1
	assert.Error(t, p.Validate())

	_, err := NewEngine(p).Analyze(sampleSnapshot(), Inputs{})
	assert.NoError(t, err, "engine fills non-positive tunables with defaults")
}
