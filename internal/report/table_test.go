package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/fixtures"
)

func analyse(t *testing.T) *analytics.ChainReport {
	t.Helper()
	engine := analytics.NewEngineForced("sequential", analytics.DefaultParams())
	r, err := engine.Analyze(fixtures.NiftySnapshot(), analytics.Inputs{
		TauYears: 7.0 / 365,
		ExpiryOI: fixtures.NiftyExpiryOI(),
	})
	require.NoError(t, err)
	return r
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, analyse(t))
	out := buf.String()

	assert.Contains(t, out, "NIFTY 23-Oct-2025 | spot 20,010.00")
	assert.Contains(t, out, "Strike")
	assert.Contains(t, out, "20,100")
	assert.Contains(t, out, "CALL_BUY")
	assert.Contains(t, out, "PUT_BUY")
	assert.Contains(t, out, "Expiries: 23-Oct-2025, 30-Oct-2025")
	assert.Contains(t, out, string(analytics.RolloverToFar))
	assert.NotContains(t, out, "Failed dimensions")
}

func TestWriteSignalsEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteSignals(&buf, &analytics.ChainReport{})
	assert.Equal(t, "No signals.\n", buf.String())

	buf.Reset()
	WriteRollover(&buf, nil)
	assert.Equal(t, "No rollover data.\n", buf.String())
}

func TestWriteHeaderErrors(t *testing.T) {
	var buf bytes.Buffer
	WriteHeader(&buf, &analytics.ChainReport{
		Symbol: "NIFTY",
		Errors: []analytics.DimensionError{{Dimension: analytics.DimSmile, Kind: analytics.KindMissingData, Message: "no iv"}},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "Failed dimensions: vol_smile: missing_data: no iv", lines[len(lines)-1])
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", integer(1234567))
	assert.Equal(t, "-70,000", integer(-70000))
	assert.Equal(t, "20,010.50", decimal(20010.5, 2))
}
