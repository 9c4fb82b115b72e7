package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level     slog.Level
	Format    LogFormat
	Output    io.Writer
	AddSource bool
}

// LogConfigFromEnv reads KMSENV_LOG_LEVEL (debug, info, warn, error) and
// KMSENV_LOG_FORMAT (text, json). KMSENV_DEBUG=1 forces debug with source
// locations.
func LogConfigFromEnv(lookup func(string) (string, bool)) LogConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := LogConfig{Level: slog.LevelInfo, Format: LogFormatText, Output: os.Stderr}
	if v, ok := lookup("KMSENV_LOG_LEVEL"); ok {
		cfg.Level = ParseLevel(v)
	}
	if v, ok := lookup("KMSENV_LOG_FORMAT"); ok && strings.EqualFold(v, string(LogFormatJSON)) {
		cfg.Format = LogFormatJSON
	}
	if v, ok := lookup("KMSENV_DEBUG"); ok && (v == "1" || strings.EqualFold(v, "true")) {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	return cfg
}

// ParseLevel maps a level name to slog.Level. Unknown names yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a slog.Logger from cfg.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}
