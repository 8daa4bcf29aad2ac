// Package logger builds the zap loggers used across sfoweb.
//
// Production output is structured JSON on stderr; verbose mode switches to the
// human-readable console encoder at debug level. Components never reach for a
// global logger: they receive a *zap.Logger from their constructor and default to
// a no-op logger when none is given.
//
// Example usage:
//
//	log, err := logger.New(logger.Options{Level: "info"})
//	log.Info("entry created", logger.Fields{
//	    "entry_id": id,
//	    "username": username,
//	}.Zap()...)
package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoder
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Options configures a logger
type Options struct {
	Level       string
	Format      Format
	OutputPaths []string
}

// Fields represents structured log fields
type Fields map[string]interface{}

// Zap converts the fields to zap fields in key order, so output is stable
func (f Fields) Zap() []zap.Field {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}

// New builds a logger from options. Unknown levels fall back to info.
func New(opts Options) (*zap.Logger, error) {
	var zcfg zap.Config
	switch opts.Format {
	case FormatConsole:
		zcfg = zap.NewDevelopmentConfig()
	case FormatJSON, "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format: %s", opts.Format)
	}

	zcfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if len(opts.OutputPaths) > 0 {
		zcfg.OutputPaths = opts.OutputPaths
	}

	return zcfg.Build()
}

// ParseLevel maps a configured level name onto a zap level
func ParseLevel(raw string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
