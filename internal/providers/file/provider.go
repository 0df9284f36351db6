package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/dto"
	"github.com/jwaldner/chainsignal/internal/providers"
)

// Supported on-disk formats
const (
	FormatNSE      = "nse"      // <SYMBOL>.json holding an NSE option-chain payload
	FormatCSV      = "csv"      // <SYMBOL>.csv in the long one-leg-per-line layout
	FormatSnapshot = "snapshot" // <SYMBOL>.json holding an OptionChainSnapshot
)

// Provider implements the SnapshotProvider interface over a directory of files
type Provider struct {
	dir          string
	format       string
	riskFreeRate float64 // applied when the source carries no rate

	// Performance tracking
	totalRequests  int64
	totalReadTime  time.Duration
	totalParseTime time.Duration
	totalDuration  time.Duration
	totalBytes     int64
	totalRecords   int64
	statsMutex     sync.RWMutex
}

// NewProvider creates a file provider reading format files from dir
func NewProvider(dir, format string, riskFreeRate float64) (*Provider, error) {
	switch format {
	case FormatNSE, FormatCSV, FormatSnapshot:
	default:
		return nil, fmt.Errorf("%w: %q", providers.ErrUnsupportedFormat, format)
	}
	return &Provider{dir: dir, format: format, riskFreeRate: riskFreeRate}, nil
}

// GetProviderName returns the provider name
func (p *Provider) GetProviderName() string {
	return "file"
}

func (p *Provider) path(symbol string) string {
	ext := ".json"
	if p.format == FormatCSV {
		ext = ".csv"
	}
	return filepath.Join(p.dir, strings.ToUpper(symbol)+ext)
}

func (p *Provider) read(ctx context.Context, symbol string, metrics *providers.PerformanceMetrics) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	start := time.Now()
	data, err := os.ReadFile(p.path(symbol))
	metrics.ReadTime = time.Since(start)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no %s data for %s", providers.ErrSnapshotNotFound, p.format, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v", p.path(symbol), err)
	}
	metrics.BytesReceived = int64(len(data))
	return data, nil
}

// LoadSnapshot reads and normalises one expiry of symbol's chain
func (p *Provider) LoadSnapshot(ctx context.Context, symbol, expiry string) (*providers.SnapshotResult, error) {
	metrics := providers.PerformanceMetrics{RequestCount: 1}
	start := time.Now()

	data, err := p.read(ctx, symbol, &metrics)
	if err != nil {
		return nil, err
	}

	parseStart := time.Now()
	var (
		snap     analytics.OptionChainSnapshot
		expiries []string
	)
	switch p.format {
	case FormatNSE:
		var chain dto.NSEChain
		if err := json.Unmarshal(data, &chain); err != nil {
			return nil, fmt.Errorf("decoding NSE chain: %v", err)
		}
		snap, expiries, err = providers.NormalizeNSE(chain, strings.ToUpper(symbol), expiry)
	case FormatCSV:
		var rows []dto.ChainCSVRow
		if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
			return nil, fmt.Errorf("decoding chain CSV: %v", err)
		}
		snap, expiries, err = providers.PivotRows(rows, strings.ToUpper(symbol), expiry)
	case FormatSnapshot:
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %v", err)
		}
		if expiry != "" && snap.Expiry != "" && expiry != snap.Expiry {
			return nil, fmt.Errorf("%w: %s snapshot is for expiry %s, not %s",
				providers.ErrSnapshotNotFound, symbol, snap.Expiry, expiry)
		}
		if snap.Expiry != "" {
			expiries = []string{snap.Expiry}
		}
	}
	if err != nil {
		return nil, err
	}
	metrics.ParseTime = time.Since(parseStart)

	if snap.RiskFreeRate == 0 {
		snap.RiskFreeRate = p.riskFreeRate
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	metrics.RecordCount = len(snap.Records)
	metrics.RequestDuration = time.Since(start)
	p.updateStats(metrics)

	return &providers.SnapshotResult{Data: snap, Expiries: expiries, Metrics: metrics}, nil
}

// LoadExpiryOI totals call and put open interest per strike for every expiry of symbol
func (p *Provider) LoadExpiryOI(ctx context.Context, symbol string) (*providers.ExpiryOIResult, error) {
	metrics := providers.PerformanceMetrics{RequestCount: 1}
	start := time.Now()

	data, err := p.read(ctx, symbol, &metrics)
	if err != nil {
		return nil, err
	}

	parseStart := time.Now()
	var out map[string]map[float64]int64
	switch p.format {
	case FormatNSE:
		var chain dto.NSEChain
		if err := json.Unmarshal(data, &chain); err != nil {
			return nil, fmt.Errorf("decoding NSE chain: %v", err)
		}
		out = providers.ExpiryOIFromNSE(chain)
	case FormatCSV:
		var rows []dto.ChainCSVRow
		if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
			return nil, fmt.Errorf("decoding chain CSV: %v", err)
		}
		out = providers.ExpiryOIFromRows(rows)
	case FormatSnapshot:
		var snap analytics.OptionChainSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %v", err)
		}
		totals := make(map[float64]int64, len(snap.Records))
		for _, r := range snap.Records {
			totals[r.Strike] = r.TotalOI()
		}
		out = map[string]map[float64]int64{snap.Expiry: totals}
	}
	metrics.ParseTime = time.Since(parseStart)
	metrics.RequestDuration = time.Since(start)
	p.updateStats(metrics)

	return &providers.ExpiryOIResult{Data: out, Metrics: metrics}, nil
}

func (p *Provider) updateStats(metrics providers.PerformanceMetrics) {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()

	p.totalRequests += int64(metrics.RequestCount)
	p.totalReadTime += metrics.ReadTime
	p.totalParseTime += metrics.ParseTime
	p.totalDuration += metrics.RequestDuration
	p.totalBytes += metrics.BytesReceived
	p.totalRecords += int64(metrics.RecordCount)
}

// GetPerformanceStats returns cumulative performance statistics
func (p *Provider) GetPerformanceStats() providers.PerformanceMetrics {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	return providers.PerformanceMetrics{
		RequestDuration: p.totalDuration,
		ReadTime:        p.totalReadTime,
		ParseTime:       p.totalParseTime,
		RequestCount:    int(p.totalRequests),
		BytesReceived:   p.totalBytes,
		RecordCount:     int(p.totalRecords),
	}
}

// Close cleans up resources
func (p *Provider) Close() error {
	return nil
}
