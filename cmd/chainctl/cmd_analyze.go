package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/pipeline"
	"github.com/jwaldner/chainsignal/internal/report"
)

type analyzeFlags struct {
	source sourceFlags
	tau    float64
	mode   string
	json   bool
	table  bool
}

var (
	analyzeOpts analyzeFlags
	signalsOpts analyzeFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run every analytic over one expiry of a chain",
	Example: `  # Built-in sample chain
  chainctl analyze --demo

  # NIFTY.json from the data directory, weekly expiry, JSON output
  chainctl analyze --symbol NIFTY --expiry 23-Oct-2025 --json

  # A tenor-labelled snapshot needs an explicit time to expiry
  chainctl analyze --file snap.json --format snapshot --tau 0.02`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := analyzeOpts.run(cmd)
		if err != nil {
			return err
		}
		return analyzeOpts.print(cmd.OutOrStdout(), rep, report.Write)
	},
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the CALL_BUY / PUT_BUY signal of every strike",
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := signalsOpts.run(cmd)
		if err != nil {
			return err
		}
		if signalsOpts.json && !signalsOpts.table {
			return writeJSON(cmd.OutOrStdout(), rep.Signals)
		}
		report.WriteHeader(cmd.OutOrStdout(), rep)
		report.WriteSignals(cmd.OutOrStdout(), rep)
		return nil
	},
}

func init() {
	for _, c := range []struct {
		cmd  *cobra.Command
		opts *analyzeFlags
	}{{analyzeCmd, &analyzeOpts}, {signalsCmd, &signalsOpts}} {
		c.opts.source.register(c.cmd)
		c.cmd.Flags().Float64Var(&c.opts.tau, "tau", -1, "Time to expiry in years (derived from the expiry date when negative)")
		c.cmd.Flags().StringVar(&c.opts.mode, "mode", "", "Execution mode: auto, parallel, sequential (defaults to engine.execution_mode)")
		c.cmd.Flags().BoolVar(&c.opts.json, "json", false, "Print JSON")
		c.cmd.Flags().BoolVar(&c.opts.table, "table", false, "Print tables (default unless --json)")
		rootCmd.AddCommand(c.cmd)
	}
}

func (f *analyzeFlags) run(cmd *cobra.Command) (*analytics.ChainReport, error) {
	ctx := cmd.Context()
	src, err := f.source.load(ctx, cfg.Engine.RiskFreeRate)
	if err != nil {
		return nil, err
	}

	mode := f.mode
	if mode == "" {
		mode = cfg.Engine.ExecutionMode
	}
	engine := analytics.NewEngineForced(mode, cfg.EngineParams())
	if cfg.Engine.Workers > 0 {
		engine.SetWorkers(cfg.Engine.Workers)
	}

	opts := pipeline.Options{ExpiryOI: src.expiryOI}
	if f.tau >= 0 {
		tau := f.tau
		opts.TauYears = &tau
	}

	return pipeline.NewService(engine, nil, nil, nil).Analyze(ctx, src.snap, opts)
}

func (f *analyzeFlags) print(w io.Writer, rep *analytics.ChainReport, table func(io.Writer, *analytics.ChainReport)) error {
	if f.json {
		if err := writeJSON(w, rep); err != nil {
			return err
		}
	}
	if f.table || !f.json {
		table(w, rep)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
