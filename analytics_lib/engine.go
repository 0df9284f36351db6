package analytics

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ExecutionMode defines how the dimensions of an analysis are scheduled
type ExecutionMode string

const (
	ExecutionModeAuto       ExecutionMode = "auto"
	ExecutionModeParallel   ExecutionMode = "parallel"
	ExecutionModeSequential ExecutionMode = "sequential"
)

// Inputs are the caller-supplied values an analysis needs besides the snapshot
type Inputs struct {
	TauYears   float64
	ATMStrike  float64                      // 0 selects the strike nearest spot
	AvgVolume  map[float64]float64          // average combined volume per strike
	PrevOIDiff map[float64]int64            // previous CE-PE OI difference per strike
	ExpiryOI   map[string]map[float64]int64 // OI per strike per expiry, for rollover
}

// Engine runs every analytic of a snapshot and composes a ChainReport
type Engine struct {
	executionMode ExecutionMode
	workers       int
	params        Params
}

// NewEngine creates an engine that picks its execution mode from the host
func NewEngine(params Params) *Engine {
	return &Engine{
		executionMode: ExecutionModeAuto,
		workers:       runtime.NumCPU(),
		params:        params.withDefaults(),
	}
}

// NewEngineForced creates engine with forced execution mode
func NewEngineForced(mode string, params Params) *Engine {
	e := NewEngine(params)

	switch mode {
	case "parallel":
		e.executionMode = ExecutionModeParallel
	case "sequential":
		e.executionMode = ExecutionModeSequential
	default:
		e.executionMode = ExecutionModeAuto
	}

	return e
}

// SetWorkers bounds the number of concurrent tasks in parallel mode
func (e *Engine) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// Params returns the tunables the engine runs with
func (e *Engine) Params() Params {
	return e.params
}

// ExecutionMode returns the resolved scheduling mode
func (e *Engine) ExecutionMode() ExecutionMode {
	if e.executionMode == ExecutionModeAuto {
		if e.workers > 1 {
			return ExecutionModeParallel
		}
		return ExecutionModeSequential
	}
	return e.executionMode
}

func (e *Engine) parallel() bool {
	return e.ExecutionMode() == ExecutionModeParallel
}

// runAll executes tasks in order or on a bounded errgroup depending on the mode
func (e *Engine) runAll(tasks []func()) {
	if !e.parallel() {
		for _, t := range tasks {
			t()
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			t()
			return nil
		})
	}
	_ = g.Wait()
}

// forEachStrike calls fn for every index in [0, n)
func (e *Engine) forEachStrike(n int, fn func(i int)) {
	tasks := make([]func(), n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = func() { fn(i) }
	}
	e.runAll(tasks)
}

func guard[T any](dim Dimension, fn func() Result[T]) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = failure[T](dim, KindInternal, "panic: %v", p)
		}
	}()
	return fn()
}

func nonFinite[T any](dim Dimension, values map[float64]float64) (Result[T], bool) {
	for strike, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return failure[T](dim, KindNonFinite, "strike %v produced %v", strike, v), true
		}
	}
	return Result[T]{}, false
}

type greeks struct {
	exposure map[float64]float64
	delta    map[float64]float64
	gamma    map[float64]float64
}

type legBuildUps struct {
	ce map[float64]BuildUp
	pe map[float64]BuildUp
}

// Analyze computes every dimension of the snapshot. Only a structurally invalid
// snapshot is an error; a failing dimension is recorded in the report and the
// remaining dimensions are still produced.
func (e *Engine) Analyze(snapshot OptionChainSnapshot, in Inputs) (*ChainReport, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if err := e.params.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}

	analyzer := NewChainAnalyzer(snapshot, e.params)
	snap := analyzer.Snapshot()
	p := e.params
	tau := in.TauYears

	atm := in.ATMStrike
	if atm <= 0 {
		atm = FindATMStrike(snap.Strikes(), snap.Spot)
	}

	var (
		skewRes     Result[map[float64]OISkew]
		effRes      Result[map[float64]float64]
		greeksRes   Result[greeks]
		premiumRes  Result[map[float64]PremiumComparison]
		smileRes    Result[SmileSummary]
		topRes      Result[[]RankedBuildup]
		buildUpRes  Result[legBuildUps]
		signalsRes  Result[[]StrikeSignal]
		rolloverRes Result[*RolloverReport]
		summaryRes  Result[ChainSummary]
	)

	tasks := []func(){
		func() {
			skewRes = guard(DimOISkew, func() Result[map[float64]OISkew] {
				return success(analyzer.OISkewMap())
			})
		},
		func() {
			effRes = guard(DimEfficiency, func() Result[map[float64]float64] {
				m := analyzer.VolumeOIEfficiencyMap(in.AvgVolume)
				if bad, ok := nonFinite[map[float64]float64](DimEfficiency, m); ok {
					return bad
				}
				return success(m)
			})
		},
		func() {
			premiumRes = guard(DimPremium, func() Result[map[float64]PremiumComparison] {
				m := analyzer.TheoreticalVsMarketMap(tau)
				for strike, c := range m {
					if !isFinite(c.CETheoretical) || !isFinite(c.PETheoretical) ||
						!isFinite(c.CEMisalignment) || !isFinite(c.PEMisalignment) {
						return failure[map[float64]PremiumComparison](DimPremium, KindNonFinite,
							"strike %v produced a non-finite premium", strike)
					}
				}
				return success(m)
			})
		},
		func() {
			smileRes = guard(DimSmile, func() Result[SmileSummary] {
				ivs := analyzer.IVByStrike()
				if len(ivs) == 0 {
					return failure[SmileSummary](DimSmile, KindMissingData, "no implied volatility in snapshot")
				}
				return success(VolSkewCurve(ivs, atm))
			})
		},
		func() {
			topRes = guard(DimTopBuildups, func() Result[[]RankedBuildup] {
				return success(analyzer.TopBuildups(in.AvgVolume, p.TopN))
			})
		},
		func() {
			buildUpRes = guard(DimBuildUp, func() Result[legBuildUps] {
				out := legBuildUps{
					ce: make(map[float64]BuildUp, len(snap.Records)),
					pe: make(map[float64]BuildUp, len(snap.Records)),
				}
				for _, r := range snap.Records {
					out.ce[r.Strike] = NeutralBuildUp
					out.pe[r.Strike] = NeutralBuildUp
					if ch, ok := r.CEPriceChange(); ok {
						out.ce[r.Strike] = ClassifyBuildUp(ch, r.CEOIChange)
					}
					if ch, ok := r.PEPriceChange(); ok {
						out.pe[r.Strike] = ClassifyBuildUp(ch, r.PEOIChange)
					}
				}
				return success(out)
			})
		},
		func() {
			signalsRes = guard(DimSignals, func() Result[[]StrikeSignal] {
				return success(DetectSignals(snap, in.PrevOIDiff))
			})
		},
		func() {
			rolloverRes = guard(DimRollover, func() Result[*RolloverReport] {
				if len(in.ExpiryOI) == 0 {
					return success[*RolloverReport](nil)
				}
				rep := CrossExpiryRollover(in.ExpiryOI, p.RolloverThreshold)
				return success(&rep)
			})
		},
		func() {
			summaryRes = guard(DimChainSummary, func() Result[ChainSummary] {
				return success(e.summarise(analyzer, snap, atm, tau))
			})
		},
	}

	// Greeks fan out per strike on their own, so they run before the other dimensions.
	greeksRes = guard(DimGamma, func() Result[greeks] {
		return e.computeGreeks(snap, tau)
	})
	e.runAll(tasks)

	report := &ChainReport{
		Symbol:        snap.Symbol,
		Expiry:        snap.Expiry,
		Spot:          snap.Spot,
		Timestamp:     snap.Timestamp,
		TauYears:      tau,
		ExecutionMode: string(e.ExecutionMode()),
	}

	collect := func(err *DimensionError) {
		if err != nil {
			report.Errors = append(report.Errors, *err)
		}
	}
	collect(skewRes.Err)
	collect(effRes.Err)
	collect(greeksRes.Err)
	collect(premiumRes.Err)
	collect(smileRes.Err)
	collect(topRes.Err)
	collect(buildUpRes.Err)
	collect(signalsRes.Err)
	collect(rolloverRes.Err)
	collect(summaryRes.Err)
	sort.SliceStable(report.Errors, func(i, j int) bool {
		return report.Errors[i].Dimension < report.Errors[j].Dimension
	})

	report.Smile = smileRes.Value
	report.TopBuildups = topRes.Value
	report.Signals = signalsRes.Value
	report.Rollover = rolloverRes.Value
	report.Summary = summaryRes.Value

	signalByStrike := make(map[float64]StrikeSignal, len(report.Signals))
	for _, s := range report.Signals {
		signalByStrike[s.Strike] = s
	}

	report.Rows = make([]ReportRow, 0, len(snap.Records))
	for _, r := range snap.Records {
		row := ReportRow{
			DerivedStrikeMetrics: DerivedStrikeMetrics{
				Strike:    r.Strike,
				OIDiff:    r.OIDiff(),
				CEPERatio: float64(r.CEOI) / float64(r.PEOI+1),
				CEBuildUp: NeutralBuildUp,
				PEBuildUp: NeutralBuildUp,
			},
			CEPrice: r.CEPrice,
			PEPrice: r.PEPrice,
		}
		pd := ComputePremiumDiscount(r.Strike, r.CEPrice, r.PEPrice, snap.Spot)
		row.Premium, row.Discount = pd.Premium, pd.Discount
		row.Dominance = PEDominant
		if row.OIDiff > 0 {
			row.Dominance = CEDominant
		}

		if skewRes.OK() {
			row.OISkewRatio = skewRes.Value[r.Strike].Ratio
		}
		if effRes.OK() {
			row.VolumeOIEfficiency = effRes.Value[r.Strike]
		}
		if greeksRes.OK() {
			row.GammaExposure = greeksRes.Value.exposure[r.Strike]
			row.Delta = greeksRes.Value.delta[r.Strike]
			row.Gamma = greeksRes.Value.gamma[r.Strike]
		}
		if premiumRes.OK() {
			c := premiumRes.Value[r.Strike]
			row.CETheoretical, row.PETheoretical = c.CETheoretical, c.PETheoretical
			row.CEMisalignment, row.PEMisalignment = c.CEMisalignment, c.PEMisalignment
		}
		if buildUpRes.OK() {
			row.CEBuildUp = buildUpRes.Value.ce[r.Strike]
			row.PEBuildUp = buildUpRes.Value.pe[r.Strike]
		}
		if s, ok := signalByStrike[r.Strike]; ok {
			row.Signal, row.Reason, row.Score = s.Signal, s.Reason, s.Score
		}
		if report.Rollover != nil {
			if ro, ok := report.Rollover.Lookup(r.Strike); ok {
				row.Rollover = ro.Signal
			}
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

func (e *Engine) computeGreeks(snap OptionChainSnapshot, tau float64) Result[greeks] {
	p := e.params
	n := len(snap.Records)
	deltas := make([]float64, n)
	gammas := make([]float64, n)

	e.forEachStrike(n, func(i int) {
		r := snap.Records[i]
		vol, ok := r.meanIV()
		if !ok {
			vol = p.DefaultVolatility
		}
		deltas[i], gammas[i] = EstimateDeltaGamma(snap.Spot, r.Strike, snap.RiskFreeRate, vol, tau, p.RelativeStep)
	})

	contractSize := p.ContractSize
	if contractSize <= 0 {
		contractSize = 1
	}
	out := greeks{
		exposure: make(map[float64]float64, n),
		delta:    make(map[float64]float64, n),
		gamma:    make(map[float64]float64, n),
	}
	for i, r := range snap.Records {
		out.delta[r.Strike] = deltas[i]
		out.gamma[r.Strike] = gammas[i]
		out.exposure[r.Strike] = gammas[i] * snap.Spot * float64(contractSize) * float64(r.TotalOI())
	}

	for _, m := range []map[float64]float64{out.exposure, out.delta, out.gamma} {
		if bad, ok := nonFinite[greeks](DimGamma, m); ok {
			return bad
		}
	}
	return success(out)
}

func (e *Engine) summarise(analyzer *ChainAnalyzer, snap OptionChainSnapshot, atm, tau float64) ChainSummary {
	p := e.params
	s := ChainSummary{
		ATMStrike:    atm,
		ATMBias:      BiasNeutral,
		PutCallRatio: ComputePutCallRatio(snap.Records),
		MaxPain:      MaxPain(snap.Records),
	}
	if snap.Future > 0 {
		s.CarryCost = CarryCost(snap.Future, snap.Spot)
	}
	s.Magnets, s.Gaps = OIMagnetsAndGaps(snap.Records, snap.Spot, p.MagnetBand, p.GapFraction, p.TopN)

	ivs := analyzer.IVByStrike()
	atmVol := p.DefaultVolatility
	for i, r := range snap.Records {
		if r.Strike != atm {
			continue
		}
		s.ATMBias = ATMBias(r)
		if iv, ok := ivs[atm]; ok {
			atmVol = iv
			// first strike above ATM is the nearest OTM call
			if i+1 < len(snap.Records) && snap.Records[i+1].CEIV != nil {
				s.VolSmileMetric = VolSmileMetric(iv, *snap.Records[i+1].CEIV)
			}
		}
		break
	}

	if atm > 0 {
		s.TimeDecayCurvature = TimeDecayCurvature(func(days int) float64 {
			return TheoreticalCallPrice(snap.Spot, atm, snap.RiskFreeRate, atmVol, float64(days)/p.DayCountBasis)
		}, p.DecayDays)
	}
	return s
}
