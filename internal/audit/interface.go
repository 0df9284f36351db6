package audit

import (
	"errors"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

var (
	// ErrChannelFull is returned when the audit queue cannot take another record
	ErrChannelFull = errors.New("audit channel full")

	// ErrClosed is returned for records sent after Close
	ErrClosed = errors.New("audit worker closed")
)

// Auditor records finished chain reports.
//
// Records for the same symbol and expiry are appended to current.json and
// current.csv in the audit directory. When a record for a different symbol or
// expiry arrives, the current pair is moved to the audits/ subdirectory under a
// name built from the configured filename format, and a new pair is started.
//
// Record never blocks: a full queue returns ErrChannelFull and the record is
// dropped. Every record is checked for NaN and Infinity values first; the
// offending field paths are stored alongside the report.
type Auditor interface {
	Record(report *analytics.ChainReport) error
	Archive() error
	Close() error
}
