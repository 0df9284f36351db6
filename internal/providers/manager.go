package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/jwaldner/chainsignal/internal/logger"
)

// SlowLoadThreshold is the load duration above which a warning is logged
var SlowLoadThreshold = 2 * time.Second

// LoadObserver is told about every successful load
type LoadObserver func(provider string, records int)

// ProviderManager manages snapshot providers and provides performance monitoring
type ProviderManager struct {
	provider SnapshotProvider
	observer LoadObserver
}

// NewProviderManager creates a new provider manager
func NewProviderManager(provider SnapshotProvider) *ProviderManager {
	return &ProviderManager{
		provider: provider,
	}
}

// OnLoad registers fn to be called after every successful snapshot load
func (pm *ProviderManager) OnLoad(fn LoadObserver) {
	pm.observer = fn
}

// LoadSnapshot is a convenience wrapper that adds logging
func (pm *ProviderManager) LoadSnapshot(ctx context.Context, symbol, expiry string) (*SnapshotResult, error) {
	result, err := pm.provider.LoadSnapshot(ctx, symbol, expiry)
	if err != nil {
		return nil, fmt.Errorf("provider %s failed to load %s snapshot: %w",
			pm.provider.GetProviderName(), symbol, err)
	}

	// Log performance if load was slow
	if result.Metrics.RequestDuration > SlowLoadThreshold {
		logger.Warn.Printf("⚠️  SLOW LOAD: %s %s snapshot took %v (read: %v, parse: %v)",
			pm.provider.GetProviderName(),
			symbol,
			result.Metrics.RequestDuration,
			result.Metrics.ReadTime,
			result.Metrics.ParseTime)
	}
	logger.Debug.Printf("📥 %s: loaded %s %s (%d strikes, %d bytes)",
		pm.provider.GetProviderName(), symbol, result.Data.Expiry,
		result.Metrics.RecordCount, result.Metrics.BytesReceived)

	if pm.observer != nil {
		pm.observer(pm.provider.GetProviderName(), result.Metrics.RecordCount)
	}
	return result, nil
}

// LoadExpiryOI is a convenience wrapper that adds logging
func (pm *ProviderManager) LoadExpiryOI(ctx context.Context, symbol string) (*ExpiryOIResult, error) {
	result, err := pm.provider.LoadExpiryOI(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("provider %s failed to load %s expiry open interest: %w",
			pm.provider.GetProviderName(), symbol, err)
	}

	if result.Metrics.RequestDuration > SlowLoadThreshold {
		logger.Warn.Printf("⚠️  SLOW LOAD: %s %s expiry OI took %v",
			pm.provider.GetProviderName(), symbol, result.Metrics.RequestDuration)
	}
	return result, nil
}

// GetProvider returns the underlying provider
func (pm *ProviderManager) GetProvider() SnapshotProvider {
	return pm.provider
}

// GetPerformanceReport returns a detailed performance report
func (pm *ProviderManager) GetPerformanceReport() string {
	stats := pm.provider.GetPerformanceStats()

	report := fmt.Sprintf(`
📊 Provider Performance Report (%s)
=====================================
Loads Made:      %d
Total Read:      %v
Total Parse:     %v
Total Duration:  %v
Bytes Read:      %d
Strikes Loaded:  %d
Cache Hits:      %v
`,
		pm.provider.GetProviderName(),
		stats.RequestCount,
		stats.ReadTime,
		stats.ParseTime,
		stats.RequestDuration,
		stats.BytesReceived,
		stats.RecordCount,
		stats.CacheHit,
	)

	return report
}

// Close cleans up the provider
func (pm *ProviderManager) Close() error {
	return pm.provider.Close()
}
