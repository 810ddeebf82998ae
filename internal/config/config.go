package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	DatabaseType     string
	DatabasePath     string
	DatabaseURL      string
	ContentURL       string
	ContentDir       string
	AdvanceDelay     time.Duration
	VisitIdleTimeout time.Duration
	RateLimit        float64
	CSRFSecret       string
	LogLevel         string
	LogFormat        string
}

// Load reads configuration from an optional .env file and environment
// variables, falling back to sensible defaults
func Load() *Config {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		ServerPort:       v.GetString("PORT"),
		DatabaseType:     strings.ToLower(v.GetString("DATABASE_TYPE")),
		DatabasePath:     v.GetString("DB_PATH"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		ContentURL:       v.GetString("CONTENT_URL"),
		ContentDir:       v.GetString("CONTENT_DIR"),
		AdvanceDelay:     v.GetDuration("ADVANCE_DELAY"),
		VisitIdleTimeout: v.GetDuration("VISIT_IDLE_TIMEOUT"),
		RateLimit:        v.GetFloat64("RATE_LIMIT"),
		CSRFSecret:       v.GetString("CSRF_SECRET"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}
}

// setDefaults registers default values for every known key
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./studydeck.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CONTENT_URL", "")
	v.SetDefault("CONTENT_DIR", "./content")
	v.SetDefault("ADVANCE_DELAY", 300*time.Millisecond)
	v.SetDefault("VISIT_IDLE_TIMEOUT", 2*time.Hour)
	v.SetDefault("RATE_LIMIT", 20.0)
	v.SetDefault("CSRF_SECRET", "studydeck-dev-secret")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// UsesMemoryStore reports whether progress should live only in memory
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseType == "memory"
}
