package providers

import (
	"context"
	"errors"
	"time"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// ErrUnsupportedFormat is returned for snapshot sources the provider cannot read
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

// ErrSnapshotNotFound is returned when no data exists for a symbol or expiry
var ErrSnapshotNotFound = errors.New("snapshot not found")

// PerformanceMetrics tracks timing and performance data for provider operations
type PerformanceMetrics struct {
	RequestDuration time.Duration `json:"request_duration"`
	ReadTime        time.Duration `json:"read_time"`  // Time spent reading the source
	ParseTime       time.Duration `json:"parse_time"` // Decode and normalisation time
	CacheHit        bool          `json:"cache_hit"`
	RequestCount    int           `json:"request_count"` // Number of loads made
	BytesReceived   int64         `json:"bytes_received"`
	RecordCount     int           `json:"record_count"`
}

// SnapshotResult contains a snapshot with performance metrics
type SnapshotResult struct {
	Data     analytics.OptionChainSnapshot `json:"data"`
	Expiries []string                      `json:"expiries"` // every expiry the source lists, nearest first
	Metrics  PerformanceMetrics            `json:"metrics"`
}

// ExpiryOIResult contains open interest per strike for every expiry of a symbol
type ExpiryOIResult struct {
	Data    map[string]map[float64]int64 `json:"-"`
	Metrics PerformanceMetrics           `json:"metrics"`
}

// SnapshotProvider defines the interface for option-chain data sources
type SnapshotProvider interface {
	// LoadSnapshot loads one expiry of a symbol's chain; an empty expiry selects the nearest
	LoadSnapshot(ctx context.Context, symbol, expiry string) (*SnapshotResult, error)

	// LoadExpiryOI loads total open interest per strike for each listed expiry
	LoadExpiryOI(ctx context.Context, symbol string) (*ExpiryOIResult, error)

	// GetProviderName returns the name of the provider (e.g., "file")
	GetProviderName() string

	// GetPerformanceStats returns cumulative performance statistics
	GetPerformanceStats() PerformanceMetrics

	// Close cleans up any resources
	Close() error
}
