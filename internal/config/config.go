package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	Format     string `yaml:"format"` // text or json
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// EngineConfig represents analytics engine configuration
type EngineConfig struct {
	ExecutionMode     string  `yaml:"execution_mode"` // auto, parallel, sequential
	Workers           int     `yaml:"workers"`
	ContractSize      int     `yaml:"contract_size"`
	RolloverThreshold float64 `yaml:"rollover_threshold"`
	RelativeStep      float64 `yaml:"relative_step"`
	DefaultVolatility float64 `yaml:"default_volatility"`
	TopN              int     `yaml:"top_n"`
	MagnetBand        float64 `yaml:"magnet_band"`
	GapFraction       float64 `yaml:"gap_fraction"`
	DayCountBasis     float64 `yaml:"day_count_basis"`
	RiskFreeRate      float64 `yaml:"risk_free_rate"` // used when a snapshot carries none
}

// HistoryConfig controls the rolling window used for average volume
type HistoryConfig struct {
	Window int `yaml:"window"`
}

// AuditConfig represents audit trail configuration
type AuditConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Dir            string `yaml:"dir"`
	FilenameFormat string `yaml:"filename_format"`
}

// DataConfig points the file provider at snapshot files
type DataConfig struct {
	Dir            string   `yaml:"dir"`
	Format         string   `yaml:"format"` // nse, csv, snapshot
	DefaultSymbols []string `yaml:"default_symbols"`
}

type Config struct {
	// Server settings
	Port string

	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	History HistoryConfig `yaml:"history"`
	Audit   AuditConfig   `yaml:"audit"`
	Data    DataConfig    `yaml:"data"`
}

type YAMLConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	History HistoryConfig `yaml:"history"`
	Audit   AuditConfig   `yaml:"audit"`
	Data    DataConfig    `yaml:"data"`
}

// ConfigFile is the YAML file overlaid on the environment defaults
var ConfigFile = "config.yaml"

func Load() *Config {
	// A .env file only fills variables that are not already set
	_ = godotenv.Load()

	defaults := analytics.DefaultParams()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Logging: LoggingConfig{
			LogLevel:   getEnv("LOG_LEVEL", "info"),
			LogFile:    getEnv("LOG_FILE", "chainsignal.log"),
			Format:     getEnv("LOG_FORMAT", "text"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		},

		// Default engine configuration
		Engine: EngineConfig{
			ExecutionMode:     getEnv("ENGINE_EXECUTION_MODE", "auto"),
			Workers:           getEnvInt("ENGINE_WORKERS", 0),
			ContractSize:      getEnvInt("ENGINE_CONTRACT_SIZE", defaults.ContractSize),
			RolloverThreshold: getEnvFloat("ENGINE_ROLLOVER_THRESHOLD", defaults.RolloverThreshold),
			RelativeStep:      getEnvFloat("ENGINE_RELATIVE_STEP", defaults.RelativeStep),
			DefaultVolatility: getEnvFloat("ENGINE_DEFAULT_VOLATILITY", defaults.DefaultVolatility),
			TopN:              getEnvInt("ENGINE_TOP_N", defaults.TopN),
			MagnetBand:        getEnvFloat("ENGINE_MAGNET_BAND", defaults.MagnetBand),
			GapFraction:       getEnvFloat("ENGINE_GAP_FRACTION", defaults.GapFraction),
			DayCountBasis:     getEnvFloat("ENGINE_DAY_COUNT_BASIS", defaults.DayCountBasis),
			RiskFreeRate:      getEnvFloat("RISK_FREE_RATE", 0.065),
		},

		History: HistoryConfig{
			Window: getEnvInt("HISTORY_WINDOW", 20),
		},

		Audit: AuditConfig{
			Enabled:        getEnvBool("AUDIT_ENABLED", true),
			Dir:            getEnv("AUDIT_DIR", "audits"),
			FilenameFormat: getEnv("AUDIT_FILENAME_FORMAT", "{symbol}-{expiry}-{timestamp}"),
		},

		Data: DataConfig{
			Dir:            getEnv("DATA_DIR", "data"),
			Format:         getEnv("DATA_FORMAT", "nse"),
			DefaultSymbols: getEnvStringSlice("DEFAULT_SYMBOLS", []string{"NIFTY", "BANKNIFTY"}),
		},
	}

	if yamlCfg := loadYAMLConfig(); yamlCfg != nil {
		applyYAML(cfg, yamlCfg)
	}

	return cfg
}

// applyYAML overlays every non-zero YAML value onto cfg
func applyYAML(cfg *Config, y *YAMLConfig) {
	if y.Server.Port != "" {
		cfg.Port = y.Server.Port
	}

	// Logging configuration from YAML
	if y.Logging.LogLevel != "" {
		cfg.Logging.LogLevel = y.Logging.LogLevel
	}
	if y.Logging.LogFile != "" {
		cfg.Logging.LogFile = y.Logging.LogFile
	}
	if y.Logging.Format != "" {
		cfg.Logging.Format = y.Logging.Format
	}
	if y.Logging.MaxSizeMB > 0 {
		cfg.Logging.MaxSizeMB = y.Logging.MaxSizeMB
	}
	if y.Logging.MaxBackups > 0 {
		cfg.Logging.MaxBackups = y.Logging.MaxBackups
	}

	// Engine configuration from YAML
	e := y.Engine
	if e.ExecutionMode != "" {
		cfg.Engine.ExecutionMode = e.ExecutionMode
	}
	if e.Workers > 0 {
		cfg.Engine.Workers = e.Workers
	}
	if e.ContractSize > 0 {
		cfg.Engine.ContractSize = e.ContractSize
	}
	if e.RolloverThreshold > 0 {
		cfg.Engine.RolloverThreshold = e.RolloverThreshold
	}
	if e.RelativeStep > 0 {
		cfg.Engine.RelativeStep = e.RelativeStep
	}
	if e.DefaultVolatility > 0 {
		cfg.Engine.DefaultVolatility = e.DefaultVolatility
	}
	if e.TopN > 0 {
		cfg.Engine.TopN = e.TopN
	}
	if e.MagnetBand > 0 {
		cfg.Engine.MagnetBand = e.MagnetBand
	}
	if e.GapFraction > 0 {
		cfg.Engine.GapFraction = e.GapFraction
	}
	if e.DayCountBasis > 0 {
		cfg.Engine.DayCountBasis = e.DayCountBasis
	}
	if e.RiskFreeRate > 0 {
		cfg.Engine.RiskFreeRate = e.RiskFreeRate
	}

	if y.History.Window > 0 {
		cfg.History.Window = y.History.Window
	}

	if y.Audit.Dir != "" {
		cfg.Audit = y.Audit
	}
	if cfg.Audit.FilenameFormat == "" {
		cfg.Audit.FilenameFormat = "{symbol}-{expiry}-{timestamp}"
	}

	if y.Data.Dir != "" {
		cfg.Data.Dir = y.Data.Dir
	}
	if y.Data.Format != "" {
		cfg.Data.Format = y.Data.Format
	}
	if len(y.Data.DefaultSymbols) > 0 {
		cfg.Data.DefaultSymbols = y.Data.DefaultSymbols
	}
}

func loadYAMLConfig() *YAMLConfig {
	data, err := os.ReadFile(ConfigFile)
	if err != nil {
		// Could not read config.yaml - silently return nil
		return nil
	}

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		// Could not parse config.yaml - silently return nil
		return nil
	}

	return &yamlCfg
}

// EngineParams converts the engine section into analytics tunables
func (c *Config) EngineParams() analytics.Params {
	p := analytics.DefaultParams()
	p.ContractSize = c.Engine.ContractSize
	p.RolloverThreshold = c.Engine.RolloverThreshold
	p.RelativeStep = c.Engine.RelativeStep
	p.DefaultVolatility = c.Engine.DefaultVolatility
	p.TopN = c.Engine.TopN
	p.MagnetBand = c.Engine.MagnetBand
	p.GapFraction = c.Engine.GapFraction
	p.DayCountBasis = c.Engine.DayCountBasis
	return p
}

// Validate reports settings that would make the engine unusable
func (c *Config) Validate() error {
	switch c.Engine.ExecutionMode {
	case "auto", "parallel", "sequential":
	default:
		return fmt.Errorf("invalid engine execution_mode %q", c.Engine.ExecutionMode)
	}
	switch c.Data.Format {
	case "nse", "csv", "snapshot":
	default:
		return fmt.Errorf("invalid data format %q", c.Data.Format)
	}
	if err := c.EngineParams().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return defaultValue
}

// FormatAuditFilename formats audit filenames using the configured template
func FormatAuditFilename(format, symbol, expiry, timestamp string) string {
	result := format
	result = strings.ReplaceAll(result, "{symbol}", symbol)
	result = strings.ReplaceAll(result, "{expiry}", expiry)
	result = strings.ReplaceAll(result, "{timestamp}", timestamp)
	return result
}
