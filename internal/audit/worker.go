package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
	"github.com/jwaldner/chainsignal/internal/config"
	"github.com/jwaldner/chainsignal/internal/logger"
)

const (
	currentJSON = "current.json"
	currentCSV  = "current.csv"
	archiveDir  = "audits"
)

// ActionType represents operations sent to the audit channel
type ActionType string

const (
	ActionRecord  ActionType = "record"
	ActionArchive ActionType = "archive"
)

// Action is one queued audit operation
type Action struct {
	Type   ActionType
	Report *analytics.ChainReport
	Issues []string
}

// Header identifies the symbol and expiry an audit file belongs to
type Header struct {
	Symbol    string    `json:"symbol"`
	Expiry    string    `json:"expiry,omitempty"`
	StartTime time.Time `json:"start_time"`
}

// Entry is one audited analysis
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id"`
	Issues    []string               `json:"issues,omitempty"`
	Report    *analytics.ChainReport `json:"report,omitempty"`
}

// File represents the complete current.json structure
type File struct {
	Header  Header  `json:"header"`
	Entries []Entry `json:"entries"`
}

// CSVRow is one strike of one audited analysis in current.csv
type CSVRow struct {
	RunID              string  `csv:"run_id"`
	Timestamp          string  `csv:"timestamp"`
	Symbol             string  `csv:"symbol"`
	Expiry             string  `csv:"expiry"`
	Spot               float64 `csv:"spot"`
	Strike             float64 `csv:"strike"`
	OIDiff             int64   `csv:"oi_diff"`
	OISkewRatio        float64 `csv:"oi_skew_ratio"`
	CEPERatio          float64 `csv:"ce_pe_ratio"`
	VolumeOIEfficiency float64 `csv:"volume_oi_efficiency"`
	GammaExposure      float64 `csv:"gamma_exposure"`
	CEMisalignment     float64 `csv:"ce_misalignment"`
	PEMisalignment     float64 `csv:"pe_misalignment"`
	CEBuildUp          string  `csv:"ce_build_up"`
	PEBuildUp          string  `csv:"pe_build_up"`
	Signal             string  `csv:"signal"`
	Score              int     `csv:"score"`
	Rollover           string  `csv:"rollover"`
}

// Options configure a Worker
type Options struct {
	Dir            string
	FilenameFormat string
	QueueSize      int
	OnDrop         func() // called for every record rejected by a full queue
}

// Worker owns every audit file; all writes happen on its goroutine
type Worker struct {
	dir    string
	format string
	onDrop func()

	ch     chan Action
	done   chan struct{}
	closed bool
	mutex  sync.RWMutex
}

// NewWorker creates the audit directory and starts the worker goroutine
func NewWorker(opts Options) (*Worker, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.FilenameFormat == "" {
		opts.FilenameFormat = "{symbol}-{expiry}-{timestamp}"
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	w := &Worker{
		dir:    opts.Dir,
		format: opts.FilenameFormat,
		onDrop: opts.OnDrop,
		ch:     make(chan Action, opts.QueueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Record queues a report for auditing without blocking
func (w *Worker) Record(report *analytics.ChainReport) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}
	issues := CheckFinite(report)
	if len(issues) > 0 {
		logger.Warn.Printf("⚠️ AUDIT: %s %s has %d non-finite values", report.Symbol, report.RunID, len(issues))
	}
	return w.send(Action{Type: ActionRecord, Report: report, Issues: issues})
}

// Archive moves the current audit files into the archive directory
func (w *Worker) Archive() error {
	return w.send(Action{Type: ActionArchive})
}

func (w *Worker) send(action Action) error {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if w.closed {
		return ErrClosed
	}
	select {
	case w.ch <- action:
		return nil
	default:
		if w.onDrop != nil {
			w.onDrop()
		}
		return ErrChannelFull
	}
}

// Close stops accepting records, drains the queue and waits for the worker
func (w *Worker) Close() error {
	w.mutex.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mutex.Unlock()

	<-w.done
	return nil
}

// run processes all audit operations in a single goroutine
func (w *Worker) run() {
	defer close(w.done)

	for action := range w.ch {
		switch action.Type {
		case ActionRecord:
			if err := w.record(action); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to record %s: %v", action.Report.Symbol, err)
			}
		case ActionArchive:
			if err := w.archive(); err != nil {
				logger.Warn.Printf("⚠️ AUDIT: Failed to archive: %v", err)
			}
		default:
			logger.Warn.Printf("⚠️ AUDIT: INVALID ACTION TYPE '%s'", action.Type)
		}
	}
}

func (w *Worker) jsonPath() string { return filepath.Join(w.dir, currentJSON) }
func (w *Worker) csvPath() string  { return filepath.Join(w.dir, currentCSV) }

func (w *Worker) readCurrent() (*File, error) {
	data, err := os.ReadFile(w.jsonPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corrupted %s: %w", currentJSON, err)
	}
	return &f, nil
}

func (w *Worker) record(action Action) error {
	report := action.Report

	current, err := w.readCurrent()
	if err != nil {
		logger.Warn.Printf("⚠️ AUDIT: %v, starting a new audit", err)
		current = nil
	}

	// A different symbol or expiry starts a new audit
	if current != nil && (current.Header.Symbol != report.Symbol || current.Header.Expiry != report.Expiry) {
		if err := w.archive(); err != nil {
			return err
		}
		current = nil
	}
	if current == nil {
		current = &File{Header: Header{Symbol: report.Symbol, Expiry: report.Expiry, StartTime: time.Now()}}
		logger.Debug.Printf("📝 AUDIT: Created new audit for %s-%s", report.Symbol, report.Expiry)
	}

	current.Entries = append(current.Entries, Entry{
		Timestamp: time.Now(),
		RunID:     report.RunID,
		Issues:    action.Issues,
		Report:    sanitized(report, action.Issues),
	})

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding audit: %w", err)
	}
	if err := os.WriteFile(w.jsonPath(), data, 0644); err != nil {
		return fmt.Errorf("writing audit: %w", err)
	}

	if err := w.appendCSV(report); err != nil {
		return err
	}
	logger.Debug.Printf("📝 AUDIT: Added entry %s (total: %d)", report.RunID, len(current.Entries))
	return nil
}

func (w *Worker) appendCSV(report *analytics.ChainReport) error {
	rows := csvRows(report)
	if len(rows) == 0 {
		return nil
	}

	_, statErr := os.Stat(w.csvPath())
	f, err := os.OpenFile(w.csvPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening audit csv: %w", err)
	}
	defer f.Close()

	if os.IsNotExist(statErr) {
		err = gocsv.Marshal(&rows, f)
	} else {
		err = gocsv.MarshalWithoutHeaders(&rows, f)
	}
	if err != nil {
		return fmt.Errorf("writing audit csv: %w", err)
	}
	return nil
}

func csvRows(report *analytics.ChainReport) []CSVRow {
	rows := make([]CSVRow, 0, len(report.Rows))
	ts := report.Timestamp.Format(time.RFC3339)
	for _, r := range report.Rows {
		rows = append(rows, CSVRow{
			RunID:              report.RunID,
			Timestamp:          ts,
			Symbol:             report.Symbol,
			Expiry:             report.Expiry,
			Spot:               report.Spot,
			Strike:             r.Strike,
			OIDiff:             r.OIDiff,
			OISkewRatio:        r.OISkewRatio,
			CEPERatio:          r.CEPERatio,
			VolumeOIEfficiency: r.VolumeOIEfficiency,
			GammaExposure:      r.GammaExposure,
			CEMisalignment:     r.CEMisalignment,
			PEMisalignment:     r.PEMisalignment,
			CEBuildUp:          string(r.CEBuildUp),
			PEBuildUp:          string(r.PEBuildUp),
			Signal:             string(r.Signal),
			Score:              r.Score,
			Rollover:           string(r.Rollover),
		})
	}
	return rows
}

// archive moves current.json and current.csv into audits/ using the header of current.json
func (w *Worker) archive() error {
	current, err := w.readCurrent()
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}

	dir := filepath.Join(w.dir, archiveDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	baseName := config.FormatAuditFilename(w.format, current.Header.Symbol, current.Header.Expiry, timestamp)
	base := filepath.Join(dir, baseName)

	if err := os.Rename(w.jsonPath(), base+".json"); err != nil {
		return fmt.Errorf("moving %s: %w", currentJSON, err)
	}
	if _, err := os.Stat(w.csvPath()); err == nil {
		if err := os.Rename(w.csvPath(), base+".csv"); err != nil {
			return fmt.Errorf("moving %s: %w", currentCSV, err)
		}
	}
	logger.Verbose.Printf("📁 AUDIT: Moved audit to %s.json", base)
	return nil
}

// sanitized drops a report holding NaN or Infinity, which encoding/json refuses;
// the entry keeps its run id and the offending paths
func sanitized(report *analytics.ChainReport, issues []string) *analytics.ChainReport {
	if len(issues) > 0 {
		return nil
	}
	return report
}
