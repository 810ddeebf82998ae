package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("ADVANCE_DELAY", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("DatabaseType = %q, want %q", cfg.DatabaseType, "sqlite")
	}
	if cfg.AdvanceDelay != 300*time.Millisecond {
		t.Errorf("AdvanceDelay = %v, want 300ms", cfg.AdvanceDelay)
	}
	if cfg.UsesMemoryStore() {
		t.Error("UsesMemoryStore() should be false for sqlite")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_TYPE", "Memory")
	t.Setenv("ADVANCE_DELAY", "1s")
	t.Setenv("RATE_LIMIT", "5")

	cfg := Load()

	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9000")
	}
	if !cfg.UsesMemoryStore() {
		t.Errorf("UsesMemoryStore() = false for DATABASE_TYPE=%q", cfg.DatabaseType)
	}
	if cfg.AdvanceDelay != time.Second {
		t.Errorf("AdvanceDelay = %v, want 1s", cfg.AdvanceDelay)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %v, want 5", cfg.RateLimit)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"defaults", "info", "text", logrus.InfoLevel, false},
		{"debug json", "debug", "JSON", logrus.DebugLevel, true},
		{"unknown level", "loud", "", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level, LogFormat: tt.format}
			logger := cfg.NewLogger()

			if logger.GetLevel() != tt.wantLevel {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.wantLevel)
			}
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			if isJSON != tt.wantJSON {
				t.Errorf("json formatter = %v, want %v", isJSON, tt.wantJSON)
			}
		})
	}
}
