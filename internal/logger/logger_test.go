package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainsignal.log")
	require.NoError(t, InitWithConfig("warn", path))
	t.Cleanup(func() { _ = InitWithOptions(Options{Level: "info"}) })

	Info.Printf("info line %d", 1)
	Warn.Printf("warn line %d", 2)
	Debug.Println("debug line")
	Always.Printf("always line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "info line 1")
	assert.NotContains(t, out, "debug line")
	assert.Contains(t, out, "warn line 2")
	assert.Contains(t, out, "always line")
	assert.Equal(t, "warn", Level())
}

func TestJSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainsignal.json.log")
	require.NoError(t, InitWithOptions(Options{Level: "debug", File: path, Format: "json"}))
	t.Cleanup(func() { _ = InitWithOptions(Options{Level: "info"}) })

	WithComponent("engine").WithField("symbol", "NIFTY").Info("analysed")
	Debug.Printf("debug visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `"message":"analysed"`)
	assert.Contains(t, out, `"component":"engine"`)
	assert.Contains(t, out, `"symbol":"NIFTY"`)
	assert.Contains(t, out, "debug visible")
}

func TestInvalidFormat(t *testing.T) {
	assert.Error(t, InitWithOptions(Options{Level: "info", Format: "xml"}))
}

func TestShouldLog(t *testing.T) {
	currentLogLevel = "bogus"
	t.Cleanup(func() { currentLogLevel = "info" })

	assert.True(t, shouldLog("info"))
	assert.False(t, shouldLog("debug"))
	assert.False(t, shouldLog("nope"))
	assert.Equal(t, "info", Level())
}
