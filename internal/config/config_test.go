package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigFile(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	prev := ConfigFile
	ConfigFile = path
	t.Cleanup(func() { ConfigFile = prev })
}

func TestLoadDefaults(t *testing.T) {
	withConfigFile(t, "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "auto", cfg.Engine.ExecutionMode)
	assert.Equal(t, 1.2, cfg.Engine.RolloverThreshold)
	assert.Equal(t, 1, cfg.Engine.ContractSize)
	assert.Equal(t, 20, cfg.History.Window)
	assert.Equal(t, []string{"NIFTY", "BANKNIFTY"}, cfg.Data.DefaultSymbols)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverride(t *testing.T) {
	withConfigFile(t, "")
	t.Setenv("ENGINE_ROLLOVER_THRESHOLD", "1.5")
	t.Setenv("ENGINE_CONTRACT_SIZE", "50")
	t.Setenv("DEFAULT_SYMBOLS", "NIFTY, FINNIFTY ,")
	t.Setenv("AUDIT_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, 1.5, cfg.Engine.RolloverThreshold)
	assert.Equal(t, 50, cfg.Engine.ContractSize)
	assert.Equal(t, []string{"NIFTY", "FINNIFTY"}, cfg.Data.DefaultSymbols)
	assert.False(t, cfg.Audit.Enabled)
}

func TestYAMLOverlay(t *testing.T) {
	withConfigFile(t, `
server:
  port: "9090"
logging:
  log_level: debug
  format: json
engine:
  execution_mode: sequential
  contract_size: 25
  rollover_threshold: 1.3
history:
  window: 5
data:
  dir: /var/lib/chains
  format: csv
  default_symbols: [BANKNIFTY]
`)

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "sequential", cfg.Engine.ExecutionMode)
	assert.Equal(t, 5, cfg.History.Window)
	assert.Equal(t, "csv", cfg.Data.Format)
	assert.Equal(t, []string{"BANKNIFTY"}, cfg.Data.DefaultSymbols)

	p := cfg.EngineParams()
	assert.Equal(t, 25, p.ContractSize)
	assert.Equal(t, 1.3, p.RolloverThreshold)
	assert.Equal(t, 0.0005, p.RelativeStep)
}

func TestValidate(t *testing.T) {
	withConfigFile(t, "")
	cfg := Load()

	cfg.Engine.ExecutionMode = "cuda"
	assert.Error(t, cfg.Validate())

	cfg.Engine.ExecutionMode = "parallel"
	cfg.Data.Format = "xlsx"
	assert.Error(t, cfg.Validate())

	cfg.Data.Format = "nse"
	cfg.Engine.GapFraction = -0.1
	assert.Error(t, cfg.Validate())
}

func TestFormatAuditFilename(t *testing.T) {
	got := FormatAuditFilename("{symbol}-{expiry}-{timestamp}", "NIFTY", "23-Oct-2025", "2025-10-16_15-30-00")
	assert.Equal(t, "NIFTY-23-Oct-2025-2025-10-16_15-30-00", got)

	assert.Equal(t, "audit", FormatAuditFilename("audit", "NIFTY", "", ""))
}
