package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwaldner/chainsignal/internal/config"
	"github.com/jwaldner/chainsignal/internal/logger"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

// rootCmd is the base command for the chainctl CLI
var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "Option-chain analytics and signals from the command line",
	Long: `chainctl analyses option-chain snapshots read from NSE JSON, long-format CSV
or snapshot JSON files and prints per-strike analytics, signals and
cross-expiry rollover.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.ConfigFile = configPath
		cfg = config.Load()
		if err := logger.InitWithOptions(logger.Options{Level: logLevel, Format: cfg.Logging.Format}); err != nil {
			return err
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: error, warn, info, debug, verbose")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
