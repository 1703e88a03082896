package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultListenAddr = ":8080"

	envListenAddr    = "KILN_LISTEN_ADDR"
	envLogLevel      = "KILN_LOG_LEVEL"
	envMaxConcurrent = "KILN_MAX_CONCURRENT"
	envStoreCapacity = "KILN_STORE_CAPACITY"
	envJournalPath   = "KILN_JOURNAL_PATH"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	LogLevel      slog.Level
	MaxConcurrent int    // 0 = unlimited
	StoreCapacity int    // 0 = unbounded
	JournalPath   string // "" = journal disabled
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		LogLevel:   slog.LevelInfo,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}
	cfg.MaxConcurrent = parseIntEnv(envMaxConcurrent, 0)
	cfg.StoreCapacity = parseIntEnv(envStoreCapacity, 0)
	cfg.JournalPath = os.Getenv(envJournalPath)

	return cfg
}

// parseIntEnv reads a non-negative integer from the environment, falling back
// to the default on anything unparseable.
func parseIntEnv(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

// ParseLogLevel maps a level name to its slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
