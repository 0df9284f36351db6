package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOISkewOf(t *testing.T) {
	tests := []struct {
		name      string
		ce, pe    int64
		wantDiff  int64
		wantRatio float64
	}{
		{"call heavy", 1000, 500, 500, 1.0 / 3},
		{"put heavy", 500, 1000, -500, -1.0 / 3},
		{"balanced", 700, 700, 0, 0},
		{"empty strike", 0, 0, 0, 0},
		{"calls only", 250, 0, 250, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, ratio := OISkewOf(tt.ce, tt.pe)
			assert.Equal(t, tt.wantDiff, diff)
			assert.InDelta(t, tt.wantRatio, ratio, 1e-12)
		})
	}
}

func TestClassifyBuildUp(t *testing.T) {
	tests := []struct {
		price float64
		oi    int64
		want  BuildUp
	}{
		{1.5, 100, LongBuildUp},
		{-1.5, 100, ShortBuildUp},
		{1.5, -100, ShortCovering},
		{-1.5, -100, LongUnwinding},
		{0, 100, NeutralBuildUp},
		{0, -100, NeutralBuildUp},
		{2, 0, NeutralBuildUp},
		{-2, 0, NeutralBuildUp},
		{0, 0, NeutralBuildUp},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBuildUp(tt.price, tt.oi), "price=%v oi=%v", tt.price, tt.oi)
	}
}

func TestVolumeOIEfficiency(t *testing.T) {
	assert.InDelta(t, 2.0*(300.0/2000), VolumeOIEfficiency(2000, 300, 1000), 1e-12)
	assert.InDelta(t, -0.1, VolumeOIEfficiency(1000, -100, 1000), 1e-12)
	assert.Equal(t, 0.0, VolumeOIEfficiency(2000, 300, 0))
	assert.Equal(t, 0.0, VolumeOIEfficiency(0, 300, 1000))
}

func TestIdentifyBuildup(t *testing.T) {
	assert.Equal(t, FreshLongBuildup, IdentifyBuildup(2000, 100, 1000, 5))
	assert.Equal(t, FreshShortBuildup, IdentifyBuildup(2000, 100, 1000, -5))
	assert.Equal(t, FreshShortBuildup, IdentifyBuildup(2000, 100, 1000, 0))
	assert.Equal(t, PositionUnwinding, IdentifyBuildup(2000, -100, 1000, 5))
	assert.Equal(t, NeutralBuildup, IdentifyBuildup(2000, 0, 1000, 5))
	assert.Equal(t, NeutralBuildup, IdentifyBuildup(1000, 100, 1000, 5))
	assert.Equal(t, NeutralBuildup, IdentifyBuildup(500, -100, 1000, 5))
}

func TestPremiumMisalignment(t *testing.T) {
	assert.InDelta(t, 0.1, PremiumMisalignment(110, 100), 1e-12)
	assert.InDelta(t, -0.5, PremiumMisalignment(50, 100), 1e-12)
	assert.Equal(t, 12.5, PremiumMisalignment(12.5, 0))
	assert.Equal(t, 0.0, PremiumMisalignment(0, 0))
}

func chainForOI() []StrikeRecord {
	return []StrikeRecord{
		{Strike: 100, CEOI: 100, PEOI: 900, CEVolume: 50, PEVolume: 200},
		{Strike: 110, CEOI: 400, PEOI: 400, CEVolume: 100, PEVolume: 100},
		{Strike: 120, CEOI: 1000, PEOI: 100, CEVolume: 300, PEVolume: 50},
	}
}

func TestComputeOIDifferences(t *testing.T) {
	rows := ComputeOIDifferences([]StrikeRecord{chainForOI()[2], chainForOI()[0], chainForOI()[1]})
	require.Len(t, rows, 3)

	assert.Equal(t, 100.0, rows[0].Strike)
	assert.Equal(t, int64(-800), rows[0].OIDiff)
	assert.InDelta(t, 100.0/901, rows[0].OIRatio, 1e-12)
	assert.Equal(t, PEDominant, rows[0].Dominance)

	assert.Equal(t, PEDominant, rows[1].Dominance, "a tie is not call dominance")
	assert.Equal(t, CEDominant, rows[2].Dominance)
}

func TestComputePutCallRatio(t *testing.T) {
	pcr := ComputePutCallRatio(chainForOI())
	assert.InDelta(t, 1400.0/1500, pcr.ByOI, 1e-12)
	assert.InDelta(t, 350.0/450, pcr.ByVolume, 1e-12)

	assert.Equal(t, PutCallRatio{}, ComputePutCallRatio(nil))
}

func TestMaxPain(t *testing.T) {
	// pain(100) = puts at 110 (10*400) + puts at 120 (20*100) = 6000
	// pain(110) = calls at 100 (10*100) + puts at 120 (10*100) = 2000
	// pain(120) = calls at 100 (20*100) + calls at 110 (10*400) = 6000
	assert.Equal(t, 110.0, MaxPain(chainForOI()))
	assert.Equal(t, 0.0, MaxPain(nil))
}

func TestOIMagnetsAndGaps(t *testing.T) {
	records := []StrikeRecord{
		{Strike: 19800, CEOI: 5000, PEOI: 5000},
		{Strike: 19900, CEOI: 100, PEOI: 100},
		{Strike: 20000, CEOI: 8000, PEOI: 7000},
		{Strike: 20100, CEOI: 3000, PEOI: 3000},
		{Strike: 22000, CEOI: 90000, PEOI: 90000},
	}

	magnets, gaps := OIMagnetsAndGaps(records, 20000, 1000, 0.3, 2)
	require.Len(t, magnets, 2)
	assert.Equal(t, 20000.0, magnets[0].Strike)
	assert.InDelta(t, 15000.0, magnets[0].Score, 1e-9)
	assert.Equal(t, 20100.0, magnets[1].Strike)

	// band median total OI is 8000; only 19900 sits below 2400
	require.Len(t, gaps, 1)
	assert.Equal(t, 19900.0, gaps[0].Strike)

	magnets, gaps = OIMagnetsAndGaps(records, 50000, 1000, 0.3, 10)
	assert.Empty(t, magnets)
	assert.Empty(t, gaps)
}

func TestComputePremiumDiscount(t *testing.T) {
	pd := ComputePremiumDiscount(20000, 120, 80, 20050)
	assert.Equal(t, 40.0, pd.Premium)
	assert.Equal(t, 19850.0, pd.Discount)
}

func TestFindATMStrike(t *testing.T) {
	strikes := []float64{19800, 19900, 20000, 20100}
	assert.Equal(t, 20000.0, FindATMStrike(strikes, 19970))
	assert.Equal(t, 19900.0, FindATMStrike(strikes, 19950), "ties go to the lower strike")
	assert.Equal(t, 20100.0, FindATMStrike(strikes, 25000))
	assert.Equal(t, 0.0, FindATMStrike(nil, 20000))
}

func TestATMBias(t *testing.T) {
	assert.Equal(t, BiasBullish, ATMBias(StrikeRecord{CEPrice: 120, PEPrice: 80, CEOIChange: 10}))
	assert.Equal(t, BiasBearish, ATMBias(StrikeRecord{CEPrice: 80, PEPrice: 120, PEOIChange: 10}))
	assert.Equal(t, BiasNeutral, ATMBias(StrikeRecord{CEPrice: 120, PEPrice: 80, CEOIChange: -10}))
	assert.Equal(t, BiasNeutral, ATMBias(StrikeRecord{CEPrice: 100, PEPrice: 100, CEOIChange: 10, PEOIChange: 10}))
}
