// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Telemetry exporter selections for OTEL_EXPORTER.
const (
	ExporterNone   = ""
	ExporterGRPC   = "grpc"
	ExporterHTTP   = "http"
	ExporterStdout = "stdout"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	GeminiAPIKey     string
	LogLevel         string

	// SessionTTL bounds how long a sign-in session stays valid.
	SessionTTL time.Duration

	// AllowedTelegramIDs and AllowedTelegramUsernames optionally
	// restrict who may link a Telegram account. Both empty means
	// anyone can sign up.
	AllowedTelegramIDs       []int64
	AllowedTelegramUsernames []string

	BillRemindersEnabled bool
	ReminderHour         int
	ReminderTimezone     string

	// DraftTTL is how long an unconfirmed scanned bill survives
	// before cleanup discards it.
	DraftTTL time.Duration

	ExchangeBaseURL  string
	ExchangeCacheTTL time.Duration

	OTelExporter    string
	OTelEndpoint    string
	OTelServiceName string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		OTelExporter:     strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER"))),
		OTelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName:  os.Getenv("OTEL_SERVICE_NAME"),
	}

	if cfg.OTelServiceName == "" {
		cfg.OTelServiceName = "fortuna"
	}

	cfg.SessionTTL = durationHours("SESSION_TTL_HOURS", 720)
	cfg.DraftTTL = durationHours("DRAFT_TTL_HOURS", 24)

	cfg.BillRemindersEnabled = os.Getenv("BILL_REMINDERS_ENABLED") == "true"
	cfg.ReminderHour = 9
	if hourStr := os.Getenv("REMINDER_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			cfg.ReminderHour = h
		}
	}
	cfg.ReminderTimezone = "Asia/Singapore"
	if tz := os.Getenv("REMINDER_TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.ReminderTimezone = tz
		}
	}

	cfg.ExchangeBaseURL = os.Getenv("EXCHANGE_API_BASE_URL")
	if cfg.ExchangeBaseURL == "" {
		cfg.ExchangeBaseURL = "https://open.er-api.com/v6"
	}
	cfg.ExchangeCacheTTL = time.Hour
	if minStr := os.Getenv("EXCHANGE_CACHE_TTL_MINUTES"); minStr != "" {
		if m, err := strconv.Atoi(minStr); err == nil && m > 0 {
			cfg.ExchangeCacheTTL = time.Duration(m) * time.Minute
		}
	}

	if idsStr := os.Getenv("ALLOWED_TELEGRAM_IDS"); idsStr != "" {
		for idStr := range strings.SplitSeq(idsStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.AllowedTelegramIDs = append(cfg.AllowedTelegramIDs, id)
		}
	}

	if namesStr := os.Getenv("ALLOWED_TELEGRAM_USERNAMES"); namesStr != "" {
		for username := range strings.SplitSeq(namesStr, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			username = strings.TrimPrefix(username, "@")
			cfg.AllowedTelegramUsernames = append(cfg.AllowedTelegramUsernames, username)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationHours(key string, defaultHours int) time.Duration {
	if s := os.Getenv(key); s != "" {
		if h, err := strconv.Atoi(s); err == nil && h > 0 {
			return time.Duration(h) * time.Hour
		}
	}
	return time.Duration(defaultHours) * time.Hour
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterGRPC, ExporterHTTP, ExporterStdout:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of grpc, http, stdout", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// TelegramAccessRestricted reports whether linking is limited to an
// allow list.
func (c *Config) TelegramAccessRestricted() bool {
	return len(c.AllowedTelegramIDs) > 0 || len(c.AllowedTelegramUsernames) > 0
}

// IsTelegramUserAllowed checks whether a Telegram user may link an
// account. An empty allow list admits everyone.
func (c *Config) IsTelegramUserAllowed(userID int64, username string) bool {
	if !c.TelegramAccessRestricted() {
		return true
	}

	if slices.Contains(c.AllowedTelegramIDs, userID) {
		return true
	}

	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, allowed := range c.AllowedTelegramUsernames {
			if strings.EqualFold(allowed, username) {
				return true
			}
		}
	}

	return false
}

// AIEnabled reports whether Gemini-backed features are configured.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}
