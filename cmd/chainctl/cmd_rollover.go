package main

import (
	"errors"

	"github.com/spf13/cobra"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/report"
)

var (
	rolloverSource    sourceFlags
	rolloverThreshold float64
	rolloverJSON      bool
)

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Compare near and far expiry open interest per strike",
	Long: `rollover splits the chain's expiries, nearest first, into a near half and a
far half and flags strikes whose far open interest exceeds the near open
interest by more than the threshold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := rolloverSource.load(cmd.Context(), cfg.Engine.RiskFreeRate)
		if err != nil {
			return err
		}
		if len(src.expiryOI) == 0 {
			return errors.New("the source carries no per-expiry open interest")
		}

		threshold := rolloverThreshold
		if threshold <= 0 {
			threshold = cfg.Engine.RolloverThreshold
		}
		rep := analytics.CrossExpiryRollover(src.expiryOI, threshold)

		if rolloverJSON {
			return writeJSON(cmd.OutOrStdout(), rep)
		}
		report.WriteRollover(cmd.OutOrStdout(), &rep)
		return nil
	},
}

func init() {
	rolloverSource.register(rolloverCmd)
	rolloverCmd.Flags().Float64Var(&rolloverThreshold, "threshold", 0, "Far/near ratio above which a strike is rolling (defaults to engine.rollover_threshold)")
	rolloverCmd.Flags().BoolVar(&rolloverJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(rolloverCmd)
}
