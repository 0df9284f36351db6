package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

func counterValue(t *testing.T, r *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestObserveReport(t *testing.T) {
	r := NewRegistry()

	report := &analytics.ChainReport{
		Symbol: "NIFTY",
		Rows:   make([]analytics.ReportRow, 3),
		Signals: []analytics.StrikeSignal{
			{Strike: 100, Signal: analytics.SignalCallBuy},
			{Strike: 200, Signal: analytics.SignalNone},
			{Strike: 300, Signal: analytics.SignalPutBuy},
			{Strike: 400, Signal: analytics.SignalCallBuy},
		},
		Errors: []analytics.DimensionError{
			{Dimension: analytics.DimSmile, Kind: analytics.KindMissingData},
		},
	}
	r.ObserveReport(report)
	r.ObserveFailure("NIFTY")

	assert.Equal(t, 1.0, counterValue(t, r, "chainsignal_analyses_total", map[string]string{"symbol": "NIFTY", "status": "partial"}))
	assert.Equal(t, 1.0, counterValue(t, r, "chainsignal_analyses_total", map[string]string{"symbol": "NIFTY", "status": "error"}))
	assert.Equal(t, 2.0, counterValue(t, r, "chainsignal_signals_total", map[string]string{"signal": "CALL_BUY"}))
	assert.Equal(t, 1.0, counterValue(t, r, "chainsignal_signals_total", map[string]string{"signal": "PUT_BUY"}))
	assert.Equal(t, 1.0, counterValue(t, r, "chainsignal_dimension_failures_total", map[string]string{"dimension": "vol_smile", "kind": "missing_data"}))
	assert.Equal(t, 3.0, counterValue(t, r, "chainsignal_strikes_analysed_total", nil))
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveLoad("file", 4)
	r.ObservePhase("compute", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chainsignal_snapshots_loaded_total{provider="file"} 1`)
	assert.Contains(t, string(body), `chainsignal_analysis_duration_seconds_count{phase="compute"} 1`)
}
