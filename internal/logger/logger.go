package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Printer is a levelled logger with the familiar Printf/Println surface
type Printer struct {
	entry *log.Entry
	level log.Level
}

// Printf logs a formatted message at the printer's level
func (p *Printer) Printf(format string, args ...interface{}) {
	p.entry.Log(p.level, fmt.Sprintf(format, args...))
}

// Println logs its arguments at the printer's level
func (p *Printer) Println(args ...interface{}) {
	p.entry.Log(p.level, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// WithField returns an entry carrying a structured field at this printer's sink
func (p *Printer) WithField(key string, value interface{}) *log.Entry {
	return p.entry.WithField(key, value)
}

var (
	Info    *Printer
	Warn    *Printer
	Debug   *Printer
	Verbose *Printer
	Error   *Printer
	Always  *Printer // Always logs to file regardless of log level

	base   *log.Logger
	always *log.Logger

	// Current log level for filtering
	currentLogLevel string
)

// Options configure the log sinks
type Options struct {
	Level      string
	File       string // empty logs to stderr only
	Format     string // text or json
	MaxSizeMB  int
	MaxBackups int
}

func init() {
	_ = InitWithOptions(Options{Level: "info"})
}

func Init() error {
	return InitWithLevel("info")
}

func InitWithLevel(logLevel string) error {
	return InitWithConfig(logLevel, "chainsignal.log")
}

func InitWithConfig(logLevel, logFilePath string) error {
	return InitWithOptions(Options{Level: logLevel, File: logFilePath})
}

// InitWithOptions rebuilds every levelled printer from opts
func InitWithOptions(opts Options) error {
	format := strings.ToLower(opts.Format)
	if format != "" && format != "text" && format != "json" {
		return fmt.Errorf("invalid log format %q", opts.Format)
	}

	currentLogLevel = strings.ToLower(opts.Level)

	var fileWriter io.Writer
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 5
		}
		fileWriter = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: backups,
			Compress:   true,
		}
	}

	base = log.New()
	base.SetLevel(log.TraceLevel)
	base.SetFormatter(formatter(format))
	if fileWriter != nil {
		base.SetOutput(fileWriter)
	} else {
		base.SetOutput(os.Stderr)
	}

	errLogger := log.New()
	errLogger.SetLevel(log.TraceLevel)
	errLogger.SetFormatter(formatter(format))
	if fileWriter != nil {
		errLogger.SetOutput(io.MultiWriter(os.Stderr, fileWriter))
	} else {
		errLogger.SetOutput(os.Stderr)
	}

	// Always bypasses level filtering
	always = log.New()
	always.SetLevel(log.TraceLevel)
	always.SetFormatter(formatter(format))
	always.SetOutput(base.Out)

	Info = newPrinter("info", base, log.InfoLevel)
	Warn = newPrinter("warn", base, log.WarnLevel)
	Debug = newPrinter("debug", base, log.DebugLevel)
	Verbose = newPrinter("verbose", base, log.TraceLevel)
	Error = &Printer{entry: log.NewEntry(errLogger), level: log.ErrorLevel}
	Always = &Printer{entry: log.NewEntry(always), level: log.InfoLevel}

	return nil
}

func formatter(format string) log.Formatter {
	if format == "json" {
		return &log.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: log.FieldMap{
				log.FieldKeyTime:  "timestamp",
				log.FieldKeyLevel: "level",
				log.FieldKeyMsg:   "message",
			},
		}
	}
	return &log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
}

// newPrinter returns a printer that discards output when its level is filtered out
func newPrinter(level string, l *log.Logger, lvl log.Level) *Printer {
	if shouldLog(level) {
		return &Printer{entry: log.NewEntry(l), level: lvl}
	}
	discard := log.New()
	discard.SetOutput(io.Discard)
	return &Printer{entry: log.NewEntry(discard), level: lvl}
}

// WithComponent returns a structured entry tagged with the component name
func WithComponent(component string) *log.Entry {
	return log.NewEntry(base).WithField("component", component)
}

// Level returns the configured level name
func Level() string {
	if _, ok := levels[currentLogLevel]; !ok {
		return "info"
	}
	return currentLogLevel
}

var levels = map[string]int{
	"error":   0,
	"warn":    1,
	"info":    2,
	"debug":   3,
	"verbose": 4,
}

// shouldLog determines if a log level should be active
func shouldLog(level string) bool {
	currentLevel, exists := levels[currentLogLevel]
	if !exists {
		currentLevel = 2 // default to info
	}

	requiredLevel, exists := levels[level]
	if !exists {
		return false
	}

	return currentLevel >= requiredLevel
}
