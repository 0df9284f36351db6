package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/config"
	"github.com/jwaldner/chainsignal/internal/dto"
	"github.com/jwaldner/chainsignal/internal/history"
	"github.com/jwaldner/chainsignal/internal/logger"
	"github.com/jwaldner/chainsignal/internal/metrics"
	"github.com/jwaldner/chainsignal/internal/models"
	"github.com/jwaldner/chainsignal/internal/pipeline"
	"github.com/jwaldner/chainsignal/internal/providers"
	"github.com/jwaldner/chainsignal/internal/services"
)

var printer = message.NewPrinter(language.English)

var errInvalidRequest = errors.New("invalid request")

// ChainHandler handles option-chain analysis requests - DUMB HTTP layer only
type ChainHandler struct {
	config    *config.Config
	service   *pipeline.Service
	providers *providers.ProviderManager
	history   *history.Store
	metrics   *metrics.Registry
	requests  *services.RequestService
}

// NewChainHandler creates a new chain handler; providers, store and reg may be nil
func NewChainHandler(cfg *config.Config, service *pipeline.Service, pm *providers.ProviderManager, store *history.Store, reg *metrics.Registry) *ChainHandler {
	return &ChainHandler{
		config:    cfg,
		service:   service,
		providers: pm,
		history:   store,
		metrics:   reg,
		requests:  services.NewRequestService(),
	}
}

// Routes registers every endpoint on r
func (h *ChainHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/analyze", h.AnalyzeHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/analyze/{symbol}", h.AnalyzeSymbolHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/signals", h.SignalsHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/rollover", h.RolloverHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
}

// setCORS sets CORS headers for browser compatibility and answers preflight requests
func setCORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error.Printf("❌ Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, dto.ErrorResponse{Error: code, Message: err.Error()})
}

// statusFor maps a pipeline or provider error onto an HTTP status and error code
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, providers.ErrSnapshotNotFound):
		return http.StatusNotFound, "SNAPSHOT_NOT_FOUND"
	case errors.Is(err, providers.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT"
	case errors.Is(err, analytics.ErrInvalidSnapshot):
		return http.StatusUnprocessableEntity, "INVALID_SNAPSHOT"
	case errors.Is(err, pipeline.ErrNoTimeToExpiry):
		return http.StatusBadRequest, "TIME_TO_EXPIRY_REQUIRED"
	}
	return http.StatusInternalServerError, "ANALYSIS_FAILED"
}

// analysis is the outcome of running one request through the pipeline
type analysis struct {
	report   *analytics.ChainReport
	source   string
	duration time.Duration
}

// run resolves the request's snapshot, builds the pipeline options and analyses it
func (h *ChainHandler) run(r *http.Request, req *dto.AnalysisRequest) (*analysis, error) {
	start := time.Now()
	ctx := r.Context()

	var (
		snap     analytics.OptionChainSnapshot
		expiryOI map[string]map[float64]int64
		source   string
	)
	switch {
	case req.Snapshot != nil:
		snap = *req.Snapshot
		if req.Symbol != "" {
			snap.Symbol = req.Symbol
		}
		source = "snapshot"
	case req.NSE != nil:
		var err error
		snap, _, err = providers.NormalizeNSE(*req.NSE, req.Symbol, req.Expiry)
		if err != nil {
			return nil, err
		}
		snap.RiskFreeRate = h.config.Engine.RiskFreeRate
		expiryOI = providers.ExpiryOIFromNSE(*req.NSE)
		source = "nse"
	default:
		if h.providers == nil {
			return nil, fmt.Errorf("%w: no snapshot provider configured", providers.ErrSnapshotNotFound)
		}
		result, err := h.providers.LoadSnapshot(ctx, req.Symbol, req.Expiry)
		if err != nil {
			return nil, err
		}
		snap = result.Data
		source = h.providers.GetProvider().GetProviderName()

		if oi, err := h.providers.LoadExpiryOI(ctx, req.Symbol); err != nil {
			logger.Warn.Printf("⚠️ %s: no expiry open interest for rollover: %v", req.Symbol, err)
		} else {
			expiryOI = oi.Data
		}
	}

	if snap.Symbol == "" {
		snap.Symbol = "UNKNOWN"
	}
	if req.RiskFreeRate != nil {
		snap.RiskFreeRate = *req.RiskFreeRate
	}
	if req.Future != nil {
		snap.Future = *req.Future
	}

	opts, err := h.options(req)
	if err != nil {
		return nil, err
	}
	if opts.ExpiryOI == nil && expiryOI != nil {
		opts.ExpiryOI = expiryOI
		if h.history != nil {
			for expiry, oi := range expiryOI {
				h.history.SetExpiryOI(snap.Symbol, expiry, oi)
			}
		}
	}

	service := h.service
	if req.ExecutionMode != "" {
		engine := analytics.NewEngineForced(req.ExecutionMode, h.service.Engine().Params())
		if h.config.Engine.Workers > 0 {
			engine.SetWorkers(h.config.Engine.Workers)
		}
		service = h.service.WithEngine(engine)
	}

	report, err := service.Analyze(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	return &analysis{report: report, source: source, duration: time.Since(start)}, nil
}

// options converts the strike-keyed request maps into pipeline options
func (h *ChainHandler) options(req *dto.AnalysisRequest) (pipeline.Options, error) {
	opts := pipeline.Options{TauYears: req.TauYears, ATMStrike: req.ATMStrike}

	var err error
	if opts.AvgVolume, err = h.requests.StrikeFloats(req.AvgVolume); err != nil {
		return opts, fmt.Errorf("%w: avg_volume: %v", errInvalidRequest, err)
	}
	if opts.PrevOIDiff, err = h.requests.StrikeInts(req.PrevOIDiff); err != nil {
		return opts, fmt.Errorf("%w: prev_oi_diff: %v", errInvalidRequest, err)
	}
	if opts.ExpiryOI, err = h.requests.ExpiryOI(req.ExpiryOI); err != nil {
		return opts, fmt.Errorf("%w: expiry_oi: %v", errInvalidRequest, err)
	}
	return opts, nil
}

// AnalyzeHandler analyses a posted snapshot, NSE payload or provider symbol
func (h *ChainHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if setCORS(w, r) {
		return
	}

	req, err := h.requests.ParseAnalysisRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	logger.Debug.Printf("=== CHAIN ANALYSIS REQUEST ===")
	logger.Debug.Printf("Symbol: %s | Expiry: %s | Mode: %s", req.Symbol, req.Expiry, req.ExecutionMode)

	h.respondAnalysis(w, r, req)
}

// AnalyzeSymbolHandler analyses a symbol from the configured provider
func (h *ChainHandler) AnalyzeSymbolHandler(w http.ResponseWriter, r *http.Request) {
	if setCORS(w, r) {
		return
	}

	q := r.URL.Query()
	req := &dto.AnalysisRequest{
		Symbol:        strings.ToUpper(mux.Vars(r)["symbol"]),
		Expiry:        q.Get("expiry"),
		ExecutionMode: q.Get("mode"),
	}
	if tau := q.Get("tau"); tau != "" {
		v := h.requests.ParseFloat64(tau, -1)
		if v < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Errorf("invalid tau %q", tau))
			return
		}
		req.TauYears = &v
	}
	switch req.ExecutionMode {
	case "", "auto", "parallel", "sequential":
	default:
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Errorf("invalid mode %q", req.ExecutionMode))
		return
	}

	h.respondAnalysis(w, r, req)
}

func (h *ChainHandler) respondAnalysis(w http.ResponseWriter, r *http.Request, req *dto.AnalysisRequest) {
	result, err := h.run(r, req)
	if err != nil {
		status, code := statusFor(err)
		logger.Warn.Printf("⚠️ Analysis of %s failed: %v", req.Symbol, err)
		writeError(w, status, code, err)
		return
	}

	report := result.report
	rows := make([]models.FormattedStrikeRow, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, h.convertToFormattedRow(row))
	}

	response := models.FormattedAnalysisResponse{
		Success: true,
		Data: models.FormattedAnalysisData{
			Rows:          rows,
			FieldMetadata: h.getFieldMetadata(),
			Summary:       report.Summary,
			Smile:         report.Smile,
			TopBuildups:   report.TopBuildups,
			Signals:       report.Signals,
			Rollover:      report.Rollover,
			Errors:        report.Errors,
		},
		Meta: h.metadata(result),
	}

	h.sanitizeResponseData(&response)
	writeJSON(w, http.StatusOK, response)
}

// SignalsHandler returns only the per-strike signals of an analysis
func (h *ChainHandler) SignalsHandler(w http.ResponseWriter, r *http.Request) {
	if setCORS(w, r) {
		return
	}

	req, err := h.requests.ParseAnalysisRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	result, err := h.run(r, req)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SignalsResponse{
		Success: true,
		Signals: result.report.Signals,
		Active:  len(result.report.ActiveSignals()),
		Errors:  result.report.Errors,
		Meta:    h.metadata(result),
	})
}

// RolloverHandler compares near and far expiry open interest per strike
func (h *ChainHandler) RolloverHandler(w http.ResponseWriter, r *http.Request) {
	if setCORS(w, r) {
		return
	}

	req, err := h.requests.ParseRolloverRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = h.service.Engine().Params().RolloverThreshold
	}

	oi, err := h.requests.ExpiryOI(req.ExpiryOI)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if len(oi) == 0 {
		oi = h.expiryOIFor(r, req.Symbol)
	}
	if len(oi) == 0 {
		writeError(w, http.StatusNotFound, "SNAPSHOT_NOT_FOUND",
			fmt.Errorf("no expiry open interest known for %s", req.Symbol))
		return
	}

	rollover := analytics.CrossExpiryRollover(oi, threshold)
	logger.Info.Printf("🔄 ROLLOVER %s: %d expiries, %d strikes, threshold %.2f",
		req.Symbol, len(rollover.Expiries), len(rollover.Strikes), threshold)

	writeJSON(w, http.StatusOK, models.RolloverResponse{
		Success:   true,
		Threshold: threshold,
		Rollover:  rollover,
	})
}

// expiryOIFor loads a symbol's expiry open interest from the provider, then from history
func (h *ChainHandler) expiryOIFor(r *http.Request, symbol string) map[string]map[float64]int64 {
	if h.providers != nil {
		result, err := h.providers.LoadExpiryOI(r.Context(), symbol)
		if err == nil && len(result.Data) > 0 {
			return result.Data
		}
		if err != nil {
			logger.Debug.Printf("🔍 %s: provider has no expiry OI, trying history: %v", symbol, err)
		}
	}
	if h.history != nil {
		return h.history.ExpiryOI(symbol)
	}
	return nil
}

// HealthHandler reports the engine mode and known symbols
func (h *ChainHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if setCORS(w, r) {
		return
	}

	symbols := append([]string(nil), h.config.Data.DefaultSymbols...)
	if h.history != nil {
		seen := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			seen[s] = true
		}
		for _, s := range h.history.Symbols() {
			if !seen[s] {
				symbols = append(symbols, s)
			}
		}
	}
	sort.Strings(symbols)

	resp := models.HealthResponse{
		Status:        "ok",
		ExecutionMode: string(h.service.Engine().ExecutionMode()),
		Symbols:       symbols,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	if h.providers != nil {
		resp.Provider = h.providers.GetProvider().GetProviderName()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChainHandler) metadata(result *analysis) models.ResponseMetadata {
	report := result.report
	return models.ResponseMetadata{
		RunID:          report.RunID,
		Symbol:         report.Symbol,
		Expiry:         report.Expiry,
		Spot:           report.Spot,
		TauYears:       report.TauYears,
		Timestamp:      report.Timestamp.Format(time.RFC3339),
		ProcessingTime: result.duration.Seconds(),
		ExecutionMode:  report.ExecutionMode,
		Source:         result.source,
		StrikeCount:    len(report.Rows),
		SignalCount:    len(report.ActiveSignals()),
		FailedCount:    len(report.Errors),
	}
}

// sanitizeResponseData removes infinity and NaN values that break JSON encoding
func (h *ChainHandler) sanitizeResponseData(response *models.FormattedAnalysisResponse) {
	for i := range response.Data.Rows {
		row := response.Data.Rows[i]

		strike := "unknown"
		if f, ok := row["strike"]; ok {
			strike = f.Display
		}

		for fieldName, field := range row {
			if rawValue, ok := field.Raw.(float64); ok {
				if math.IsInf(rawValue, 0) || math.IsNaN(rawValue) {
					field.Raw = 0.0
					field.Display = "0.00"
					row[fieldName] = field
					logger.Warn.Printf("🔧 Sanitized infinite %s=%v at strike %s", fieldName, rawValue, strike)
				}
			}
		}
	}

	s := &response.Data.Summary
	for name, v := range map[string]*float64{
		"put_call_ratio.by_oi":     &s.PutCallRatio.ByOI,
		"put_call_ratio.by_volume": &s.PutCallRatio.ByVolume,
		"carry_cost":               &s.CarryCost,
		"vol_smile_metric":         &s.VolSmileMetric,
		"time_decay_curvature":     &s.TimeDecayCurvature,
		"smile.left_avg":           &response.Data.Smile.LeftAvg,
		"smile.right_avg":          &response.Data.Smile.RightAvg,
		"smile.overall_skew":       &response.Data.Smile.OverallSkew,
		"smile.steepness":          &response.Data.Smile.Steepness,
		"meta.tau_years":           &response.Meta.TauYears,
	} {
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			logger.Warn.Printf("🔧 Sanitized infinite %s=%v", name, *v)
			*v = 0
		}
	}
	for i := range response.Data.TopBuildups {
		if e := response.Data.TopBuildups[i].Efficiency; math.IsInf(e, 0) || math.IsNaN(e) {
			response.Data.TopBuildups[i].Efficiency = 0
		}
	}

	if math.IsInf(response.Meta.ProcessingTime, 0) || math.IsNaN(response.Meta.ProcessingTime) {
		response.Meta.ProcessingTime = 0
		logger.Debug.Printf("🔧 Sanitized infinite ProcessingTime")
	}
}

// Formatter methods for dual format response
func (h *ChainHandler) formatNumber(value float64, places int) models.FieldValue {
	return models.FieldValue{
		Raw:     value,
		Display: printer.Sprintf(fmt.Sprintf("%%.%df", places), value),
		Type:    "number",
	}
}

func (h *ChainHandler) formatPercentage(value float64) models.FieldValue {
	return models.FieldValue{
		Raw:     value,
		Display: fmt.Sprintf("%.2f%%", value*100),
		Type:    "percentage",
	}
}

func (h *ChainHandler) formatInteger(value int64) models.FieldValue {
	return models.FieldValue{
		Raw:     value,
		Display: printer.Sprintf("%d", value),
		Type:    "integer",
	}
}

func (h *ChainHandler) formatText(value string) models.FieldValue {
	return models.FieldValue{
		Raw:     value,
		Display: value,
		Type:    "text",
	}
}

// convertToFormattedRow converts a report row to a formatted dual-value row
func (h *ChainHandler) convertToFormattedRow(row analytics.ReportRow) models.FormattedStrikeRow {
	return models.FormattedStrikeRow{
		"strike":               h.formatNumber(row.Strike, 2),
		"ce_price":             h.formatNumber(row.CEPrice, 2),
		"pe_price":             h.formatNumber(row.PEPrice, 2),
		"oi_diff":              h.formatInteger(row.OIDiff),
		"oi_skew_ratio":        h.formatPercentage(row.OISkewRatio),
		"ce_pe_ratio":          h.formatNumber(row.CEPERatio, 3),
		"dominance":            h.formatText(string(row.Dominance)),
		"volume_oi_efficiency": h.formatNumber(row.VolumeOIEfficiency, 4),
		"gamma_exposure":       h.formatNumber(row.GammaExposure, 2),
		"delta":                h.formatNumber(row.Delta, 4),
		"gamma":                h.formatNumber(row.Gamma, 6),
		"ce_theoretical":       h.formatNumber(row.CETheoretical, 2),
		"pe_theoretical":       h.formatNumber(row.PETheoretical, 2),
		"ce_misalignment":      h.formatPercentage(row.CEMisalignment),
		"pe_misalignment":      h.formatPercentage(row.PEMisalignment),
		"ce_build_up":          h.formatText(string(row.CEBuildUp)),
		"pe_build_up":          h.formatText(string(row.PEBuildUp)),
		"premium":              h.formatNumber(row.Premium, 2),
		"discount":             h.formatNumber(row.Discount, 2),
		"signal":               h.formatText(string(row.Signal)),
		"score":                h.formatInteger(int64(row.Score)),
		"reason":               h.formatText(row.Reason),
		"rollover":             h.formatText(string(row.Rollover)),
	}
}

// getFieldMetadata returns metadata for all fields
func (h *ChainHandler) getFieldMetadata() map[string]models.FieldMetadata {
	return map[string]models.FieldMetadata{
		"strike":               {DisplayName: "Strike", Type: "number", Sortable: true, Alignment: "right"},
		"ce_price":             {DisplayName: "CE LTP", Type: "number", Sortable: true, Alignment: "right"},
		"pe_price":             {DisplayName: "PE LTP", Type: "number", Sortable: true, Alignment: "right"},
		"oi_diff":              {DisplayName: "OI Diff", Type: "integer", Sortable: true, Alignment: "right"},
		"oi_skew_ratio":        {DisplayName: "OI Skew", Type: "percentage", Sortable: true, Alignment: "right"},
		"ce_pe_ratio":          {DisplayName: "CE/PE OI", Type: "number", Sortable: true, Alignment: "right"},
		"dominance":            {DisplayName: "Dominance", Type: "text", Sortable: true, Alignment: "center"},
		"volume_oi_efficiency": {DisplayName: "Vol/OI Eff", Type: "number", Sortable: true, Alignment: "right"},
		"gamma_exposure":       {DisplayName: "GEX", Type: "number", Sortable: true, Alignment: "right"},
		"delta":                {DisplayName: "Delta", Type: "number", Sortable: true, Alignment: "right"},
		"gamma":                {DisplayName: "Gamma", Type: "number", Sortable: true, Alignment: "right"},
		"ce_theoretical":       {DisplayName: "CE Theo", Type: "number", Sortable: true, Alignment: "right"},
		"pe_theoretical":       {DisplayName: "PE Theo", Type: "number", Sortable: true, Alignment: "right"},
		"ce_misalignment":      {DisplayName: "CE Misalign", Type: "percentage", Sortable: true, Alignment: "right"},
		"pe_misalignment":      {DisplayName: "PE Misalign", Type: "percentage", Sortable: true, Alignment: "right"},
		"ce_build_up":          {DisplayName: "CE Build-up", Type: "text", Sortable: true, Alignment: "center"},
		"pe_build_up":          {DisplayName: "PE Build-up", Type: "text", Sortable: true, Alignment: "center"},
		"premium":              {DisplayName: "CE-PE", Type: "number", Sortable: true, Alignment: "right"},
		"discount":             {DisplayName: "Discount", Type: "number", Sortable: true, Alignment: "right"},
		"signal":               {DisplayName: "Signal", Type: "text", Sortable: true, Alignment: "center"},
		"score":                {DisplayName: "Score", Type: "integer", Sortable: true, Alignment: "center"},
		"reason":               {DisplayName: "Reason", Type: "text", Sortable: false, Alignment: "left"},
		"rollover":             {DisplayName: "Rollover", Type: "text", Sortable: true, Alignment: "left"},
	}
}
