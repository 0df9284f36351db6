package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/audit"
	"github.com/jwaldner/chainsignal/internal/history"
	"github.com/jwaldner/chainsignal/internal/logger"
	"github.com/jwaldner/chainsignal/internal/metrics"
	"github.com/jwaldner/chainsignal/internal/utils"
)

// ErrNoTimeToExpiry is returned when τ was not given and the expiry is not a calendar date
var ErrNoTimeToExpiry = errors.New("time to expiry unknown")

// Options override the inputs the service would otherwise derive
type Options struct {
	TauYears   *float64
	ATMStrike  float64
	AvgVolume  map[float64]float64
	PrevOIDiff map[float64]int64
	ExpiryOI   map[string]map[float64]int64

	// SkipHistory leaves the history store untouched
	SkipHistory bool
}

// Service prepares inputs, runs the engine and publishes the report
type Service struct {
	engine  *analytics.Engine
	history *history.Store
	auditor audit.Auditor
	metrics *metrics.Registry
	now     func() time.Time
}

// NewService wires the engine to its collaborators; any of store, auditor and reg may be nil
func NewService(engine *analytics.Engine, store *history.Store, auditor audit.Auditor, reg *metrics.Registry) *Service {
	return &Service{
		engine:  engine,
		history: store,
		auditor: auditor,
		metrics: reg,
		now:     time.Now,
	}
}

// Engine returns the engine the service runs
func (s *Service) Engine() *analytics.Engine {
	return s.engine
}

// WithEngine returns a copy of the service that runs engine, sharing every other collaborator
func (s *Service) WithEngine(engine *analytics.Engine) *Service {
	clone := *s
	clone.engine = engine
	return &clone
}

// TauYears returns the time to expiry of snap in years
func (s *Service) TauYears(snap analytics.OptionChainSnapshot) (float64, error) {
	at := snap.Timestamp
	if at.IsZero() {
		at = s.now()
	}
	tau, err := utils.TimeToExpiry(at, snap.Expiry, s.engine.Params().DayCountBasis)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoTimeToExpiry, err)
	}
	return tau, nil
}

// Analyze runs one snapshot through the engine
func (s *Service) Analyze(ctx context.Context, snap analytics.OptionChainSnapshot, opts Options) (*analytics.ChainReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// PHASE 1: PREPARE
	prepareStart := time.Now()
	if err := snap.Validate(); err != nil {
		s.observeFailure(snap.Symbol)
		return nil, err
	}
	in, err := s.prepare(snap, opts)
	if err != nil {
		s.observeFailure(snap.Symbol)
		return nil, err
	}
	prepareDuration := time.Since(prepareStart)

	// PHASE 2: COMPUTE
	computeStart := time.Now()
	report, err := s.engine.Analyze(snap, in)
	if err != nil {
		s.observeFailure(snap.Symbol)
		return nil, fmt.Errorf("analysing %s: %w", snap.Symbol, err)
	}
	computeDuration := time.Since(computeStart)

	// PHASE 3: PUBLISH
	publishStart := time.Now()
	report.RunID = uuid.NewString()
	if s.metrics != nil {
		s.metrics.ObserveReport(report)
	}
	if s.auditor != nil {
		if err := s.auditor.Record(report); err != nil {
			logger.Warn.Printf("⚠️ AUDIT: %s %s not audited: %v", report.Symbol, report.RunID, err)
		}
	}
	publishDuration := time.Since(publishStart)

	if s.metrics != nil {
		s.metrics.ObservePhase("prepare", prepareDuration)
		s.metrics.ObservePhase("compute", computeDuration)
		s.metrics.ObservePhase("publish", publishDuration)
	}

	logger.Debug.Printf("🔧 PREPARE %s: %.3fms | %d strikes | τ=%.5f",
		snap.Symbol, ms(prepareDuration), len(snap.Records), in.TauYears)
	logger.Debug.Printf("⚡ COMPUTE %s: %.3fms | Mode: %s | %d failed dimensions",
		snap.Symbol, ms(computeDuration), report.ExecutionMode, len(report.Errors))
	logger.Info.Printf("📊 %s %s: %d strikes, %d signals, max pain %.2f, PCR %.3f (run %s)",
		report.Symbol, report.Expiry, len(report.Rows), len(report.ActiveSignals()),
		report.Summary.MaxPain, report.Summary.PutCallRatio.ByOI, report.RunID)
	for _, e := range report.Errors {
		logger.Warn.Printf("⚠️  %s %s: %s", report.Symbol, report.RunID, e.Error())
	}

	return report, nil
}

func (s *Service) prepare(snap analytics.OptionChainSnapshot, opts Options) (analytics.Inputs, error) {
	in := analytics.Inputs{
		ATMStrike:  opts.ATMStrike,
		AvgVolume:  opts.AvgVolume,
		PrevOIDiff: opts.PrevOIDiff,
		ExpiryOI:   opts.ExpiryOI,
	}

	if opts.TauYears != nil {
		in.TauYears = *opts.TauYears
	} else {
		tau, err := s.TauYears(snap)
		if err != nil {
			return in, err
		}
		in.TauYears = tau
	}

	if s.history == nil || opts.SkipHistory {
		return in, nil
	}

	// The previous OI difference must be read before this snapshot is recorded
	if in.PrevOIDiff == nil {
		in.PrevOIDiff = s.history.PrevOIDiff(snap.Symbol, snap.Expiry)
	}
	s.history.Record(snap)
	if in.AvgVolume == nil {
		in.AvgVolume = s.history.AvgVolume(snap.Symbol, snap.Expiry)
	}
	if in.ExpiryOI == nil {
		in.ExpiryOI = s.history.ExpiryOI(snap.Symbol)
	}
	return in, nil
}

func (s *Service) observeFailure(symbol string) {
	if s.metrics != nil {
		s.metrics.ObserveFailure(symbol)
	}
}

// BatchResult is the outcome of one snapshot of a batch
type BatchResult struct {
	Symbol   string
	Expiry   string
	Report   *analytics.ChainReport
	Err      error
	Duration time.Duration
}

// AnalyzeBatchWithTiming analyses every snapshot, at most workers at a time, and logs
// a timing summary. A failing snapshot does not stop the others.
func (s *Service) AnalyzeBatchWithTiming(ctx context.Context, snaps []analytics.OptionChainSnapshot, opts Options, workers int) []BatchResult {
	results := make([]BatchResult, len(snaps))
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range snaps {
		i := i
		g.Go(func() error {
			itemStart := time.Now()
			report, err := s.Analyze(gctx, snaps[i], opts)
			results[i] = BatchResult{
				Symbol:   snaps[i].Symbol,
				Expiry:   snaps[i].Expiry,
				Report:   report,
				Err:      err,
				Duration: time.Since(itemStart),
			}
			return nil
		})
	}
	_ = g.Wait()

	// SUMMARY TIMING REPORT
	var ok, failed, strikes, signals int
	var compute time.Duration
	for _, r := range results {
		compute += r.Duration
		if r.Err != nil {
			failed++
			continue
		}
		ok++
		strikes += len(r.Report.Rows)
		signals += len(r.Report.ActiveSignals())
	}
	wall := time.Since(start)

	logger.Info.Printf("📈 BATCH SUMMARY: %d snapshots (%d ok, %d failed) | %d strikes | %d signals",
		len(snaps), ok, failed, strikes, signals)
	logger.Info.Printf("  🎯 Wall: %.3fms | Summed compute: %.3fms | Workers: %d",
		ms(wall), ms(compute), workers)

	return results
}

func ms(d time.Duration) float64 {
	return d.Seconds() * 1000
}
