package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwaldner/chainsignal/internal/dto"
)

// RequestService handles HTTP request parsing
type RequestService struct{}

// NewRequestService creates a new request service
func NewRequestService() *RequestService {
	return &RequestService{}
}

// ParseAnalysisRequest parses an HTTP request into an AnalysisRequest
func (s *RequestService) ParseAnalysisRequest(r *http.Request) (*dto.AnalysisRequest, error) {
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("method not allowed: %s", r.Method)
	}

	var req dto.AnalysisRequest

	// Parse JSON request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	// Clean symbol
	req.Symbol = strings.TrimSpace(strings.ToUpper(req.Symbol))
	req.Expiry = strings.TrimSpace(req.Expiry)

	// Validate required fields
	if req.Snapshot == nil && req.NSE == nil && req.Symbol == "" {
		return nil, fmt.Errorf("one of snapshot, nse or symbol is required")
	}

	switch req.ExecutionMode {
	case "", "auto", "parallel", "sequential":
	default:
		return nil, fmt.Errorf("invalid execution_mode %q", req.ExecutionMode)
	}

	if req.TauYears != nil && *req.TauYears < 0 {
		return nil, fmt.Errorf("tau_years must not be negative")
	}

	// Analysis request parsed
	return &req, nil
}

// ParseRolloverRequest parses an HTTP request into a RolloverRequest
func (s *RequestService) ParseRolloverRequest(r *http.Request) (*dto.RolloverRequest, error) {
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("method not allowed: %s", r.Method)
	}

	var req dto.RolloverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	req.Symbol = strings.TrimSpace(strings.ToUpper(req.Symbol))

	if len(req.ExpiryOI) == 0 && req.Symbol == "" {
		return nil, fmt.Errorf("expiry_oi or symbol is required")
	}
	if req.Threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative")
	}
	return &req, nil
}

// ParseStrike parses a strike price used as a JSON object key
func (s *RequestService) ParseStrike(key string) (float64, error) {
	strike, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
	if err != nil || strike <= 0 {
		return 0, fmt.Errorf("invalid strike %q", key)
	}
	return strike, nil
}

// StrikeFloats converts a strike-keyed JSON object into a strike map
func (s *RequestService) StrikeFloats(in map[string]float64) (map[float64]float64, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[float64]float64, len(in))
	for k, v := range in {
		strike, err := s.ParseStrike(k)
		if err != nil {
			return nil, err
		}
		out[strike] = v
	}
	return out, nil
}

// StrikeInts converts a strike-keyed JSON object into a strike map
func (s *RequestService) StrikeInts(in map[string]int64) (map[float64]int64, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[float64]int64, len(in))
	for k, v := range in {
		strike, err := s.ParseStrike(k)
		if err != nil {
			return nil, err
		}
		out[strike] = v
	}
	return out, nil
}

// ExpiryOI converts expiry -> strike -> OI JSON objects into strike maps
func (s *RequestService) ExpiryOI(in map[string]map[string]int64) (map[string]map[float64]int64, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]map[float64]int64, len(in))
	for expiry, byStrike := range in {
		m, err := s.StrikeInts(byStrike)
		if err != nil {
			return nil, fmt.Errorf("expiry %s: %w", expiry, err)
		}
		out[expiry] = m
	}
	return out, nil
}

// ParseFloat64 safely parses a float64 with default fallback
func (s *RequestService) ParseFloat64(str string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(str, 64); err == nil {
		return val
	}
	return defaultValue
}
