// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// zapVerbose sits below zap's debug level so the encoder can tag it
// separately; gating happens in Logger, not in the zap core.
const zapVerbose = zapcore.DebugLevel - 1

// Logger writes levelled diagnostics to stderr and, optionally, to a
// rotated JSON log file.  The printf-style API keeps call sites short.
type Logger struct {
	level      LogLevel
	mu         sync.Mutex
	output     io.Writer
	file       *lumberjack.Logger
	timestamps bool // if true, prepend wall-clock timestamps
	fields     []zap.Field
	zl         *zap.Logger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// SetFile additionally writes every entry as JSON to path, rotated by
// lumberjack once it reaches maxSizeMB.
func (l *Logger) SetFile(path string, maxSizeMB int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close() //nolint:errcheck
		l.file = nil
	}
	if path != "" {
		l.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    max(maxSizeMB, 1),
			MaxBackups: 3,
			MaxAge:     7,
		}
	}
	l.rebuild()
}

// With returns a child logger that adds key/value context to every
// entry.  Children share the parent's outputs.
func (l *Logger) With(key string, value interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{
		level:      l.level,
		output:     l.output,
		file:       l.file,
		timestamps: l.timestamps,
		fields:     append(append([]zap.Field(nil), l.fields...), zap.Any(key, value)),
	}
	child.rebuild()
	return child
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl.Sync()
}

// Close flushes and releases the log file, if any.
func (l *Logger) Close() error {
	l.Sync() //nolint:errcheck
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.rebuild()
	return err
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write(zapcore.InfoLevel, format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write(zapcore.WarnLevel, format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write(zapVerbose, format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write(zapcore.DebugLevel, format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(zapcore.ErrorLevel, format, args...)
}

func (l *Logger) write(level zapcore.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ce := l.zl.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// ── zap wiring ───────────────────────────────────────────────────────

// rebuild recreates the zap logger from the current settings.  Callers
// hold l.mu (or own l exclusively).
func (l *Logger) rebuild() {
	all := zap.LevelEnablerFunc(func(zapcore.Level) bool { return true })

	consoleCfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		EncodeLevel:      tagLevel,
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
	}
	if l.timestamps {
		consoleCfg.TimeKey = "ts"
		consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(l.output), all),
	}

	if l.file != nil {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCfg.EncodeLevel = tagLevel
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(l.file), all))
	}

	l.zl = zap.New(zapcore.NewTee(cores...)).With(l.fields...)
}

func tagLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.ErrorLevel:
		enc.AppendString("[ERR]")
	case zapcore.WarnLevel:
		enc.AppendString("[WRN]")
	case zapcore.InfoLevel:
		enc.AppendString("[INF]")
	case zapVerbose:
		enc.AppendString("[VRB]")
	case zapcore.DebugLevel:
		enc.AppendString("[DBG]")
	default:
		enc.AppendString("[" + level.CapitalString() + "]")
	}
}
