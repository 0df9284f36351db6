package dto

import (
	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// NSEChain is the option-chain payload published by the NSE website
type NSEChain struct {
	Records  NSERecords  `json:"records"`
	Filtered NSEFiltered `json:"filtered,omitempty"`
}

type NSERecords struct {
	ExpiryDates     []string  `json:"expiryDates"`
	Data            []NSERow  `json:"data"`
	Timestamp       string    `json:"timestamp"` // 16-Oct-2025 15:30:00
	UnderlyingValue float64   `json:"underlyingValue"`
	StrikePrices    []float64 `json:"strikePrices,omitempty"`
}

type NSEFiltered struct {
	Data []NSERow `json:"data"`
}

// NSERow is one strike of one expiry; either leg may be absent
type NSERow struct {
	StrikePrice float64 `json:"strikePrice"`
	ExpiryDate  string  `json:"expiryDate"`
	CE          *NSELeg `json:"CE,omitempty"`
	PE          *NSELeg `json:"PE,omitempty"`
}

// NSELeg holds the quote of a single call or put. Implied volatility is in percent.
type NSELeg struct {
	StrikePrice          float64 `json:"strikePrice"`
	ExpiryDate           string  `json:"expiryDate"`
	Underlying           string  `json:"underlying"`
	OpenInterest         float64 `json:"openInterest"`
	ChangeInOpenInterest float64 `json:"changeinOpenInterest"`
	TotalTradedVolume    float64 `json:"totalTradedVolume"`
	ImpliedVolatility    float64 `json:"impliedVolatility"`
	LastPrice            float64 `json:"lastPrice"`
	Change               float64 `json:"change"`
	PrevClose            float64 `json:"prevClose,omitempty"`
	UnderlyingValue      float64 `json:"underlyingValue"`
}

// ChainCSVRow is one option leg in the long CSV format, one line per strike and type
type ChainCSVRow struct {
	Timestamp    string  `csv:"timestamp"`
	Underlying   string  `csv:"underlying"`
	Spot         float64 `csv:"spot"`
	Expiry       string  `csv:"expiry"`
	Strike       float64 `csv:"strike"`
	OptionType   string  `csv:"option_type"` // CE or PE
	LastPrice    float64 `csv:"last_price"`
	PrevPrice    string  `csv:"prev_price"` // empty when unknown
	OpenInterest int64   `csv:"open_interest"`
	OIChange     int64   `csv:"oi_change"`
	Volume       int64   `csv:"volume"`
	IV           string  `csv:"iv"` // decimal fraction, empty when unknown
}

// AnalysisRequest represents a chain analysis request. Exactly one of Snapshot,
// NSE or Symbol is used, in that order of preference.
type AnalysisRequest struct {
	Snapshot *analytics.OptionChainSnapshot `json:"snapshot,omitempty"`
	NSE      *NSEChain                      `json:"nse,omitempty"`
	Symbol   string                         `json:"symbol,omitempty"`
	Expiry   string                         `json:"expiry,omitempty"`

	TauYears     *float64 `json:"tau_years,omitempty"`
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`
	Future       *float64 `json:"future,omitempty"`
	ATMStrike    float64  `json:"atm_strike,omitempty"`

	AvgVolume  map[string]float64          `json:"avg_volume,omitempty"`   // keyed by strike
	PrevOIDiff map[string]int64            `json:"prev_oi_diff,omitempty"` // keyed by strike
	ExpiryOI   map[string]map[string]int64 `json:"expiry_oi,omitempty"`    // expiry -> strike -> OI

	ExecutionMode string `json:"execution_mode,omitempty"`
}

// RolloverRequest carries open interest per strike for each expiry
type RolloverRequest struct {
	ExpiryOI  map[string]map[string]int64 `json:"expiry_oi"`
	Symbol    string                      `json:"symbol,omitempty"`
	Threshold float64                     `json:"threshold,omitempty"`
}

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
