package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envListenAddr, "")
	t.Setenv(envLogLevel, "")
	t.Setenv(envMaxConcurrent, "")
	t.Setenv(envStoreCapacity, "")
	t.Setenv(envJournalPath, "")

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.MaxConcurrent != 0 {
		t.Errorf("MaxConcurrent = %d, want 0", cfg.MaxConcurrent)
	}
	if cfg.StoreCapacity != 0 {
		t.Errorf("StoreCapacity = %d, want 0", cfg.StoreCapacity)
	}
	if cfg.JournalPath != "" {
		t.Errorf("JournalPath = %q, want empty", cfg.JournalPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envMaxConcurrent, "8")
	t.Setenv(envStoreCapacity, "500")
	t.Setenv(envJournalPath, "/tmp/kiln.db")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.MaxConcurrent)
	}
	if cfg.StoreCapacity != 500 {
		t.Errorf("StoreCapacity = %d, want 500", cfg.StoreCapacity)
	}
	if cfg.JournalPath != "/tmp/kiln.db" {
		t.Errorf("JournalPath = %q, want %q", cfg.JournalPath, "/tmp/kiln.db")
	}
}

func TestLoadRejectsBadIntegers(t *testing.T) {
	tests := []struct {
		value string
	}{
		{"abc"},
		{"-3"},
		{"4.5"},
	}

	for _, tt := range tests {
		t.Setenv(envMaxConcurrent, tt.value)
		cfg := Load()
		if cfg.MaxConcurrent != 0 {
			t.Errorf("MaxConcurrent with %q = %d, want fallback 0", tt.value, cfg.MaxConcurrent)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}
