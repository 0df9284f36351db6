package providers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/dto"
)

// IST is the exchange timezone of NSE timestamps
var IST = time.FixedZone("IST", 5*3600+30*60)

var timestampLayouts = []string{
	"02-Jan-2006 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses NSE, RFC3339 and plain ISO timestamps; zone-less values are IST
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, IST); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// NormalizeNSE converts an NSE option-chain payload into a snapshot of one expiry.
// An empty expiry selects the nearest listed expiry. The returned list holds every
// expiry present in the payload, nearest first.
func NormalizeNSE(chain dto.NSEChain, symbol, expiry string) (analytics.OptionChainSnapshot, []string, error) {
	rows := chain.Records.Data
	if len(rows) == 0 {
		rows = chain.Filtered.Data
	}
	if len(rows) == 0 {
		return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("%w: no strikes for %s", ErrSnapshotNotFound, symbol)
	}

	expiries := nseExpiries(chain, rows)
	if expiry == "" {
		if len(expiries) == 0 {
			return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("%w: %s has no expiry", ErrSnapshotNotFound, symbol)
		}
		expiry = expiries[0]
	}

	snap := analytics.OptionChainSnapshot{
		Symbol: symbol,
		Spot:   chain.Records.UnderlyingValue,
		Expiry: expiry,
	}
	if chain.Records.Timestamp != "" {
		ts, err := ParseTimestamp(chain.Records.Timestamp)
		if err != nil {
			return analytics.OptionChainSnapshot{}, nil, err
		}
		snap.Timestamp = ts
	}

	byStrike := make(map[float64]analytics.StrikeRecord)
	for _, row := range rows {
		if row.ExpiryDate != expiry {
			continue
		}
		rec := analytics.StrikeRecord{Strike: row.StrikePrice, Expiry: expiry}
		if row.CE != nil {
			rec.CEOI = int64(row.CE.OpenInterest)
			rec.CEOIChange = int64(row.CE.ChangeInOpenInterest)
			rec.CEPrice = row.CE.LastPrice
			rec.CEPricePrev = previousPrice(row.CE)
			rec.CEVolume = int64(row.CE.TotalTradedVolume)
			rec.CEIV = percentIV(row.CE.ImpliedVolatility)
			if snap.Spot == 0 {
				snap.Spot = row.CE.UnderlyingValue
			}
		}
		if row.PE != nil {
			rec.PEOI = int64(row.PE.OpenInterest)
			rec.PEOIChange = int64(row.PE.ChangeInOpenInterest)
			rec.PEPrice = row.PE.LastPrice
			rec.PEPricePrev = previousPrice(row.PE)
			rec.PEVolume = int64(row.PE.TotalTradedVolume)
			rec.PEIV = percentIV(row.PE.ImpliedVolatility)
			if snap.Spot == 0 {
				snap.Spot = row.PE.UnderlyingValue
			}
		}
		byStrike[rec.Strike] = rec
	}
	if len(byStrike) == 0 {
		return analytics.OptionChainSnapshot{}, expiries, fmt.Errorf("%w: %s has no strikes for expiry %s", ErrSnapshotNotFound, symbol, expiry)
	}

	snap.Records = sortedRecords(byStrike)
	return snap, expiries, nil
}

// ExpiryOIFromNSE totals call and put open interest per strike for every expiry,
// reading the filtered rows when the full record set is empty
func ExpiryOIFromNSE(chain dto.NSEChain) map[string]map[float64]int64 {
	rows := chain.Records.Data
	if len(rows) == 0 {
		rows = chain.Filtered.Data
	}
	out := make(map[string]map[float64]int64)
	for _, row := range rows {
		if row.ExpiryDate == "" {
			continue
		}
		var oi int64
		if row.CE != nil {
			oi += int64(row.CE.OpenInterest)
		}
		if row.PE != nil {
			oi += int64(row.PE.OpenInterest)
		}
		if out[row.ExpiryDate] == nil {
			out[row.ExpiryDate] = make(map[float64]int64)
		}
		out[row.ExpiryDate][row.StrikePrice] += oi
	}
	return out
}

func nseExpiries(chain dto.NSEChain, rows []dto.NSERow) []string {
	seen := make(map[string]struct{})
	var labels []string
	add := func(e string) {
		if e == "" {
			return
		}
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			labels = append(labels, e)
		}
	}
	for _, e := range chain.Records.ExpiryDates {
		add(e)
	}
	for _, r := range rows {
		add(r.ExpiryDate)
	}
	return analytics.SortExpiries(labels)
}

// previousPrice prefers the published previous close, else derives it from the day's change
func previousPrice(leg *dto.NSELeg) *float64 {
	prev := leg.PrevClose
	if prev <= 0 {
		if leg.LastPrice == 0 && leg.Change == 0 {
			return nil
		}
		prev = leg.LastPrice - leg.Change
	}
	return &prev
}

// percentIV converts an NSE percentage to a fraction; NSE publishes 0 when it has no IV
func percentIV(iv float64) *float64 {
	if iv <= 0 {
		return nil
	}
	v := iv / 100
	return &v
}

// PivotRows turns long-format CSV rows (one line per leg) into a snapshot of one expiry.
// An empty expiry selects the nearest expiry present.
func PivotRows(rows []dto.ChainCSVRow, symbol, expiry string) (analytics.OptionChainSnapshot, []string, error) {
	if len(rows) == 0 {
		return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("%w: no rows for %s", ErrSnapshotNotFound, symbol)
	}

	seen := make(map[string]struct{})
	var labels []string
	for _, r := range rows {
		if _, ok := seen[r.Expiry]; !ok {
			seen[r.Expiry] = struct{}{}
			labels = append(labels, r.Expiry)
		}
	}
	expiries := analytics.SortExpiries(labels)
	if expiry == "" {
		expiry = expiries[0]
	}

	snap := analytics.OptionChainSnapshot{Symbol: symbol, Expiry: expiry}
	byStrike := make(map[float64]analytics.StrikeRecord)
	for i, r := range rows {
		if r.Expiry != expiry {
			continue
		}
		if symbol == "" {
			snap.Symbol = r.Underlying
		}
		if snap.Spot == 0 {
			snap.Spot = r.Spot
		}
		if snap.Timestamp.IsZero() && r.Timestamp != "" {
			ts, err := ParseTimestamp(r.Timestamp)
			if err != nil {
				return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			snap.Timestamp = ts
		}

		prev, err := optionalFloat(r.PrevPrice)
		if err != nil {
			return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("row %d prev_price: %w", i+1, err)
		}
		iv, err := optionalFloat(r.IV)
		if err != nil {
			return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("row %d iv: %w", i+1, err)
		}

		rec, ok := byStrike[r.Strike]
		if !ok {
			rec = analytics.StrikeRecord{Strike: r.Strike, Expiry: expiry}
		}
		switch strings.ToUpper(strings.TrimSpace(r.OptionType)) {
		case "CE", "CALL", "C":
			rec.CEOI, rec.CEOIChange, rec.CEVolume = r.OpenInterest, r.OIChange, r.Volume
			rec.CEPrice, rec.CEPricePrev, rec.CEIV = r.LastPrice, prev, iv
		case "PE", "PUT", "P":
			rec.PEOI, rec.PEOIChange, rec.PEVolume = r.OpenInterest, r.OIChange, r.Volume
			rec.PEPrice, rec.PEPricePrev, rec.PEIV = r.LastPrice, prev, iv
		default:
			return analytics.OptionChainSnapshot{}, nil, fmt.Errorf("row %d: unknown option type %q", i+1, r.OptionType)
		}
		byStrike[r.Strike] = rec
	}

	snap.Records = sortedRecords(byStrike)
	return snap, expiries, nil
}

// ExpiryOIFromRows totals open interest per strike for every expiry in the rows
func ExpiryOIFromRows(rows []dto.ChainCSVRow) map[string]map[float64]int64 {
	out := make(map[string]map[float64]int64)
	for _, r := range rows {
		if out[r.Expiry] == nil {
			out[r.Expiry] = make(map[float64]int64)
		}
		out[r.Expiry][r.Strike] += r.OpenInterest
	}
	return out
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func sortedRecords(byStrike map[float64]analytics.StrikeRecord) []analytics.StrikeRecord {
	out := make([]analytics.StrikeRecord, 0, len(byStrike))
	for _, r := range byStrike {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}
