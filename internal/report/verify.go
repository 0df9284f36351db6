package report

import (
	"fmt"
	"io"

	"github.com/jwaldner/chainsignal/internal/verify"
)

// WriteCDFChecks renders the normal CDF comparison
func WriteCDFChecks(w io.Writer, checks []verify.CDFCheck) {
	table := newTable(w, []string{"x", "Expected", "NormalCDF", "Abs Error", ""})
	for _, c := range checks {
		status := "✅"
		if !c.Pass {
			status = "❌"
		}
		table.Append([]string{
			fmt.Sprintf("%.2f", c.X),
			fmt.Sprintf("%.16f", c.Expected),
			fmt.Sprintf("%.16f", c.Got),
			fmt.Sprintf("%.2e", c.AbsError),
			status,
		})
	}
	table.Render()
}

// WriteParity renders put-call parity residuals per strike
func WriteParity(w io.Writer, rows []verify.ParityRow) {
	table := newTable(w, []string{"Strike", "σ", "Model Residual", "Market Residual"})
	for _, r := range rows {
		table.Append([]string{
			decimal(r.Strike, 0),
			decimal(r.Volatility, 4),
			fmt.Sprintf("%.2e", r.ModelResidual),
			decimal(r.MarketResidual, 2),
		})
	}
	table.Render()
}
