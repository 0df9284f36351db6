package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwaldner/chainsignal/internal/report"
	"github.com/jwaldner/chainsignal/internal/verify"
)

var (
	verifySource    sourceFlags
	verifyTau       float64
	verifyTolerance float64
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the pricing model against reference values",
	Long: `verify compares the normal CDF with published reference values and prices
every strike of a chain to check put-call parity. The command fails when a
CDF value or a model parity residual is outside the tolerance.`,
	Example: `  chainctl verify --demo
  chainctl verify --symbol NIFTY --tau 0.0192`,
	RunE: runVerify,
}

func init() {
	verifySource.register(verifyCmd)
	verifyCmd.Flags().Float64Var(&verifyTau, "tau", 7.0/365, "Time to expiry in years used for parity pricing")
	verifyCmd.Flags().Float64Var(&verifyTolerance, "tolerance", 1e-9, "Largest accepted absolute error")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "🎯 Normal CDF reference values")
	checks := verify.CheckNormalCDF(verifyTolerance)
	report.WriteCDFChecks(out, checks)

	failed := 0
	for _, c := range checks {
		if !c.Pass {
			failed++
		}
	}

	if verifySource.demo || verifySource.file != "" || verifySource.symbol != "" {
		src, err := verifySource.load(cmd.Context(), cfg.Engine.RiskFreeRate)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n⚖️  Put-call parity: %s %s (τ %.5f y, r %.4f)\n",
			src.snap.Symbol, src.snap.Expiry, verifyTau, src.snap.RiskFreeRate)
		rows := verify.ParityResiduals(src.snap, verifyTau, cfg.Engine.DefaultVolatility)
		report.WriteParity(out, rows)

		if worst := verify.MaxModelResidual(rows); worst > verifyTolerance*src.snap.Spot {
			fmt.Fprintf(out, "❌ model parity residual %.3e exceeds tolerance\n", worst)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d verification checks failed", failed)
	}
	fmt.Fprintln(out, "✅ All checks passed")
	return nil
}
