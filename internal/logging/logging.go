// Package logging provides structured logging for the analytics engines
// and the CLI.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(home, ".config", "optionstrat", "logs", "optionstrat.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLoggerWithConfig builds a logger writing to stderr, a rotated file, or
// both. It also sets the global level.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	return zerolog.New(writerFor(cfg)).
		With().
		Timestamp().
		Caller().
		Logger()
}

func writerFor(cfg LogConfig) io.Writer {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:         os.Stderr,
			TimeFormat:  time.RFC3339,
			FormatLevel: levelLabel,
		})
	}
	if cfg.File {
		// a file that cannot be created is skipped; console output still works
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr
	case 1:
		return writers[0]
	}
	return zerolog.MultiLevelWriter(writers...)
}

var levelLabels = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
}

func levelLabel(i interface{}) string {
	ll, ok := i.(string)
	if !ok {
		return "???"
	}
	if label, ok := levelLabels[ll]; ok {
		return label
	}
	return ll
}

// parseLevel maps a level name to a zerolog level; unknown names mean info.
func parseLevel(level string) zerolog.Level {
	switch l, err := zerolog.ParseLevel(level); {
	case err != nil, l == zerolog.NoLevel, l == zerolog.TraceLevel:
		return zerolog.InfoLevel
	default:
		return l
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithStrategy adds a strategy name to the logger context.
func WithStrategy(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("strategy", name).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogAdjustment logs a proposed delta adjustment.
func LogAdjustment(logger zerolog.Logger, adjustment string, netDelta float64) {
	logger.Debug().
		Str("event", "adjustment").
		Str("adjustment", adjustment).
		Float64("net_delta", netDelta).
		Msg("Delta adjustment proposed")
}

// LogDroppedAdjustment logs a candidate adjustment excluded from the
// suggestions.
func LogDroppedAdjustment(logger zerolog.Logger, leg string, err error) {
	logger.Debug().
		Str("event", "adjustment_dropped").
		Str("leg", leg).
		Err(err).
		Msg("Delta adjustment dropped")
}

// LogTrade logs a trade produced by an adjustment.
func LogTrade(logger zerolog.Logger, symbol, action, side, style string, qty, strike float64) {
	logger.Info().
		Str("event", "trade").
		Str("symbol", symbol).
		Str("action", action).
		Str("side", side).
		Str("style", style).
		Float64("quantity", qty).
		Float64("strike", strike).
		Msg("Adjustment trade")
}

// LogPlan logs the plan chosen by the adjustment optimizer.
func LogPlan(logger zerolog.Logger, actions int, cost, residualDelta float64) {
	logger.Info().
		Str("event", "plan").
		Int("actions", actions).
		Float64("cost", cost).
		Float64("residual_delta", residualDelta).
		Msg("Adjustment plan selected")
}

// LogCandidate logs a new best candidate of the chain optimizer.
func LogCandidate(logger zerolog.Logger, kind string, score float64, evaluated int) {
	logger.Debug().
		Str("event", "candidate").
		Str("kind", kind).
		Float64("score", score).
		Int("evaluated", evaluated).
		Msg("New best candidate")
}

// LogDuration logs how long an analysis step took.
func LogDuration(logger zerolog.Logger, operation string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "timing").
		Str("operation", operation).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Operation failed")
	} else {
		event.Msg("Operation completed")
	}
}
