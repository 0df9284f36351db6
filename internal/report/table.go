// Package report renders chain reports as console tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

var printer = message.NewPrinter(language.English)

func integer(v int64) string {
	return printer.Sprintf("%d", v)
}

func decimal(v float64, places int) string {
	return printer.Sprintf(fmt.Sprintf("%%.%df", places), v)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoWrapText(false)
	return table
}

// WriteHeader prints the report's identifying line and chain summary
func WriteHeader(w io.Writer, r *analytics.ChainReport) {
	fmt.Fprintf(w, "%s %s | spot %s | τ %.5f y | mode %s | run %s\n",
		r.Symbol, r.Expiry, decimal(r.Spot, 2), r.TauYears, r.ExecutionMode, r.RunID)

	s := r.Summary
	fmt.Fprintf(w, "ATM %s (%s) | max pain %s | PCR oi %.3f vol %.3f | carry %.4f | smile %.4f | decay curvature %.4f\n",
		decimal(s.ATMStrike, 0), s.ATMBias, decimal(s.MaxPain, 0),
		s.PutCallRatio.ByOI, s.PutCallRatio.ByVolume, s.CarryCost, s.VolSmileMetric, s.TimeDecayCurvature)
	fmt.Fprintf(w, "Smile left %.4f right %.4f skew %.4f steepness %.4f\n",
		r.Smile.LeftAvg, r.Smile.RightAvg, r.Smile.OverallSkew, r.Smile.Steepness)

	if len(r.Errors) > 0 {
		parts := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			parts = append(parts, e.Error())
		}
		fmt.Fprintf(w, "Failed dimensions: %s\n", strings.Join(parts, "; "))
	}
}

// WriteStrikes renders one line per strike
func WriteStrikes(w io.Writer, r *analytics.ChainReport) {
	table := newTable(w, []string{
		"Strike", "OI Diff", "OI Skew", "CE/PE", "Dominance", "Vol/OI Eff", "Gamma Exp",
		"Delta", "CE Misalign", "PE Misalign", "CE Build-up", "PE Build-up", "Signal", "Rollover",
	})
	for _, row := range r.Rows {
		table.Append([]string{
			decimal(row.Strike, 0),
			integer(row.OIDiff),
			decimal(row.OISkewRatio, 3),
			decimal(row.CEPERatio, 3),
			string(row.Dominance),
			decimal(row.VolumeOIEfficiency, 4),
			decimal(row.GammaExposure, 2),
			decimal(row.Delta, 3),
			decimal(row.CEMisalignment, 3),
			decimal(row.PEMisalignment, 3),
			string(row.CEBuildUp),
			string(row.PEBuildUp),
			string(row.Signal),
			string(row.Rollover),
		})
	}
	table.Render()
}

// WriteSignals renders the strikes that produced a signal
func WriteSignals(w io.Writer, r *analytics.ChainReport) {
	active := r.ActiveSignals()
	if len(active) == 0 {
		fmt.Fprintln(w, "No signals.")
		return
	}

	table := newTable(w, []string{"Strike", "Signal", "Score", "Reason"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for _, s := range active {
		table.Append([]string{decimal(s.Strike, 0), string(s.Signal), fmt.Sprint(s.Score), s.Reason})
	}
	table.Render()
}

// WriteRollover renders near and far open interest per strike
func WriteRollover(w io.Writer, rep *analytics.RolloverReport) {
	if rep == nil || len(rep.Strikes) == 0 {
		fmt.Fprintln(w, "No rollover data.")
		return
	}

	fmt.Fprintf(w, "Expiries: %s\n", strings.Join(rep.Expiries, ", "))
	table := newTable(w, []string{"Strike", "Near OI", "Far OI", "Signal"})
	for _, s := range rep.Strikes {
		table.Append([]string{decimal(s.Strike, 0), integer(s.Near), integer(s.Far), string(s.Signal)})
	}
	table.Render()
}

// WriteTopBuildups renders the highest-efficiency strikes
func WriteTopBuildups(w io.Writer, r *analytics.ChainReport) {
	if len(r.TopBuildups) == 0 {
		return
	}
	table := newTable(w, []string{"Strike", "Efficiency", "Build-up"})
	for _, b := range r.TopBuildups {
		table.Append([]string{decimal(b.Strike, 0), decimal(b.Efficiency, 4), string(b.Label)})
	}
	table.Render()
}

// Write renders the whole report
func Write(w io.Writer, r *analytics.ChainReport) {
	WriteHeader(w, r)
	WriteStrikes(w, r)
	WriteTopBuildups(w, r)
	WriteSignals(w, r)
	if r.Rollover != nil {
		WriteRollover(w, r.Rollover)
	}
}
