// Package logging wires zap for the rest of threatlab.
//
// The terminal belongs to the TUI, so by default log lines go to a file in
// the data directory. Non-interactive commands may log to stderr instead.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured log lines.
const (
	FieldComponent  = "component"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldDiagramID  = "diagram_id"
	FieldScenarioID = "scenario_id"
	FieldCount      = "count"
	FieldError      = "error"
)

// Logger is the process-wide logger. It is a no-op until Initialize runs so
// packages can log from init paths and tests without nil checks.
var Logger = zap.NewNop().Sugar()

// Options configures Initialize.
type Options struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string

	// File is the log file path. Ignored when Stderr is set.
	File string

	// Stderr sends console-formatted logs to stderr.
	Stderr bool
}

// Initialize replaces the global logger.
func Initialize(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core
	switch {
	case opts.Stderr:
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return errors.Wrap(err, "create log dir")
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open log file %s", opts.File)
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level)
	default:
		Logger = zap.NewNop().Sugar()
		return nil
	}

	Logger = zap.New(core).Sugar()
	return nil
}

// Component returns a named child of the global logger.
func Component(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes buffered log entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Logger.Sync()
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, errors.Newf("unknown log level %q", s)
	}
}
