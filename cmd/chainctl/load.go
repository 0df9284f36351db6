package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/dto"
	"github.com/jwaldner/chainsignal/internal/fixtures"
	"github.com/jwaldner/chainsignal/internal/providers"
	"github.com/jwaldner/chainsignal/internal/providers/file"
)

// sourceFlags select where a snapshot comes from
type sourceFlags struct {
	file    string
	symbol  string
	dataDir string
	format  string
	expiry  string
	demo    bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "Read the chain from this file")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Load <SYMBOL>.json or <SYMBOL>.csv from --data-dir")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory of chain files (defaults to data.dir)")
	cmd.Flags().StringVar(&f.format, "format", "", "File format: nse, csv, snapshot (defaults to data.format)")
	cmd.Flags().StringVar(&f.expiry, "expiry", "", "Expiry to analyse (defaults to the nearest)")
	cmd.Flags().BoolVar(&f.demo, "demo", false, "Use the built-in NIFTY sample chain")
}

// source is a loaded snapshot plus whatever expiry open interest came with it
type source struct {
	snap     analytics.OptionChainSnapshot
	expiryOI map[string]map[float64]int64
	name     string
}

func (f *sourceFlags) load(ctx context.Context, riskFreeRate float64) (*source, error) {
	format := f.format
	if format == "" {
		format = cfg.Data.Format
	}

	var (
		src *source
		err error
	)
	switch {
	case f.demo:
		src = &source{snap: fixtures.NiftySnapshot(), expiryOI: fixtures.NiftyExpiryOI(), name: "demo"}
	case f.file != "":
		src, err = loadFile(f.file, format, f.symbol, f.expiry)
	case f.symbol != "":
		src, err = f.loadSymbol(ctx, format, riskFreeRate)
	default:
		return nil, errors.New("one of --file, --symbol or --demo is required")
	}
	if err != nil {
		return nil, err
	}

	if src.snap.RiskFreeRate == 0 {
		src.snap.RiskFreeRate = riskFreeRate
	}
	return src, nil
}

func (f *sourceFlags) loadSymbol(ctx context.Context, format string, riskFreeRate float64) (*source, error) {
	dir := f.dataDir
	if dir == "" {
		dir = cfg.Data.Dir
	}
	provider, err := file.NewProvider(dir, format, riskFreeRate)
	if err != nil {
		return nil, err
	}
	pm := providers.NewProviderManager(provider)
	defer pm.Close()

	result, err := pm.LoadSnapshot(ctx, f.symbol, f.expiry)
	if err != nil {
		return nil, err
	}
	src := &source{snap: result.Data, name: provider.GetProviderName()}
	if oi, err := pm.LoadExpiryOI(ctx, f.symbol); err == nil {
		src.expiryOI = oi.Data
	}
	return src, nil
}

// loadFile decodes a single chain file; symbol overrides the name stored in the file
func loadFile(path, format, symbol, expiry string) (*source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	src := &source{name: path}
	switch format {
	case file.FormatNSE:
		var chain dto.NSEChain
		if err := json.Unmarshal(data, &chain); err != nil {
			return nil, fmt.Errorf("decoding NSE chain: %w", err)
		}
		if symbol == "" {
			symbol = nseSymbol(chain)
		}
		if src.snap, _, err = providers.NormalizeNSE(chain, symbol, expiry); err != nil {
			return nil, err
		}
		src.expiryOI = providers.ExpiryOIFromNSE(chain)
	case file.FormatCSV:
		var rows []dto.ChainCSVRow
		if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
			return nil, fmt.Errorf("decoding chain CSV: %w", err)
		}
		if symbol == "" && len(rows) > 0 {
			symbol = strings.ToUpper(rows[0].Underlying)
		}
		if src.snap, _, err = providers.PivotRows(rows, symbol, expiry); err != nil {
			return nil, err
		}
		src.expiryOI = providers.ExpiryOIFromRows(rows)
	case file.FormatSnapshot:
		if err := json.Unmarshal(data, &src.snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		if symbol != "" {
			src.snap.Symbol = symbol
		}
	default:
		return nil, fmt.Errorf("%w: %s", providers.ErrUnsupportedFormat, format)
	}
	return src, nil
}

func nseSymbol(chain dto.NSEChain) string {
	for _, row := range chain.Records.Data {
		if row.CE != nil && row.CE.Underlying != "" {
			return row.CE.Underlying
		}
		if row.PE != nil && row.PE.Underlying != "" {
			return row.PE.Underlying
		}
	}
	return ""
}
