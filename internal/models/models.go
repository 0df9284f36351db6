package models

import (
	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// FieldValue represents a field with both raw data and formatted display
type FieldValue struct {
	Raw     interface{} `json:"raw"`     // For CSV/sorting: 1234.56
	Display string      `json:"display"` // For UI: "1,234.56"
	Type    string      `json:"type"`    // For CSS: "number"
}

// FormattedStrikeRow represents one strike of a report with formatted fields
type FormattedStrikeRow map[string]FieldValue

// FormattedAnalysisResponse represents the complete API response
type FormattedAnalysisResponse struct {
	Success bool                  `json:"success"`
	Data    FormattedAnalysisData `json:"data"`
	Meta    ResponseMetadata      `json:"meta"`
}

type FormattedAnalysisData struct {
	Rows          []FormattedStrikeRow       `json:"rows"`
	FieldMetadata map[string]FieldMetadata   `json:"field_metadata"`
	Summary       analytics.ChainSummary     `json:"summary"`
	Smile         analytics.SmileSummary     `json:"smile"`
	TopBuildups   []analytics.RankedBuildup  `json:"top_buildups"`
	Signals       []analytics.StrikeSignal   `json:"signals"`
	Rollover      *analytics.RolloverReport  `json:"rollover,omitempty"`
	Errors        []analytics.DimensionError `json:"errors,omitempty"`
}

type FieldMetadata struct {
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	Sortable    bool   `json:"sortable"`
	Alignment   string `json:"alignment"`
}

type ResponseMetadata struct {
	RunID          string  `json:"run_id"`
	Symbol         string  `json:"symbol"`
	Expiry         string  `json:"expiry"`
	Spot           float64 `json:"spot"`
	TauYears       float64 `json:"tau_years"`
	Timestamp      string  `json:"timestamp"`
	ProcessingTime float64 `json:"processing_time"` // seconds
	ExecutionMode  string  `json:"execution_mode"`
	Source         string  `json:"source"` // snapshot, nse or provider name
	StrikeCount    int     `json:"strike_count"`
	SignalCount    int     `json:"signal_count"`
	FailedCount    int     `json:"failed_count"`
}

// SignalsResponse is the body of /api/signals
type SignalsResponse struct {
	Success bool                       `json:"success"`
	Signals []analytics.StrikeSignal   `json:"signals"`
	Active  int                        `json:"active"`
	Errors  []analytics.DimensionError `json:"errors,omitempty"`
	Meta    ResponseMetadata           `json:"meta"`
}

// RolloverResponse is the body of /api/rollover
type RolloverResponse struct {
	Success   bool                     `json:"success"`
	Threshold float64                  `json:"threshold"`
	Rollover  analytics.RolloverReport `json:"rollover"`
}

// HealthResponse is the body of /api/health
type HealthResponse struct {
	Status        string   `json:"status"`
	ExecutionMode string   `json:"execution_mode"`
	Provider      string   `json:"provider,omitempty"`
	Symbols       []string `json:"symbols"`
	Timestamp     string   `json:"timestamp"`
}
