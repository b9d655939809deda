// Package log is the process-wide structured logger backed by zap.
package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logger is the subset of zap.SugaredLogger the gateway uses.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

var base = zap.New(
	zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	),
	zap.AddCaller(),
)

// Default is used by the package-level helpers.
var Default = base.WithOptions(zap.AddCallerSkip(1)).Sugar()

// SetLevel changes the level of every logger created by this package.
// Unknown values fall back to info.
func SetLevel(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelWarn, "warning":
		level.SetLevel(zapcore.WarnLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Named returns a component logger, e.g. Named("generation").
func Named(component string) *zap.SugaredLogger {
	return base.Named(component).Sugar()
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = base.Sync()
}

func Debugf(format string, args ...any) { Default.Debugf(format, args...) }
func Infof(format string, args ...any)  { Default.Infof(format, args...) }
func Warnf(format string, args ...any)  { Default.Warnf(format, args...) }
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// Fatalf logs, flushes and exits with status 1.
func Fatalf(format string, args ...any) {
	Default.Errorf(format, args...)
	Sync()
	os.Exit(1)
}

// Truncate shortens user text (prompts) for log lines.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
