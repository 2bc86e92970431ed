package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken    string
	BotUsername string

	// parQR API
	APIBaseURL string
	APITimeout time.Duration

	// Scan encodings
	ProfileBaseURL string
	URIScheme      string

	// Polling
	ChatPollInterval        time.Duration
	MoveRequestPollInterval time.Duration
	TierSyncInterval        time.Duration

	// Webhook
	WebhookPort   int
	WebhookSecret string

	// Database
	DBPath string

	// Logging
	LogLevel slog.Level
}

func Load() *Config {
	return &Config{
		// Telegram
		BotToken:    getEnv("BOT_TOKEN", ""),
		BotUsername: getEnv("BOT_USERNAME", "parqr_bot"),

		// parQR API
		APIBaseURL: strings.TrimSuffix(getEnv("PARQR_API_BASE_URL", "http://localhost:8010/api"), "/"),
		APITimeout: getEnvDuration("PARQR_API_TIMEOUT", 10*time.Second),

		// Scan encodings
		ProfileBaseURL: strings.TrimSuffix(getEnv("PARQR_PROFILE_BASE_URL", "https://parqr.app"), "/"),
		URIScheme:      getEnv("PARQR_URI_SCHEME", "parqr"),

		// Polling
		ChatPollInterval:        getEnvDuration("CHAT_POLL_INTERVAL", 30*time.Second),
		MoveRequestPollInterval: getEnvDuration("MOVE_REQUEST_POLL_INTERVAL", 30*time.Second),
		TierSyncInterval:        getEnvDuration("TIER_SYNC_INTERVAL", 5*time.Minute),

		// Webhook
		WebhookPort:   getEnvInt("WEBHOOK_PORT", 8080),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		// Database
		DBPath: getEnv("DB_PATH", "./parqr.db"),

		// Logging
		LogLevel: getEnvLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	if val := os.Getenv(key); val != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(val)); err == nil {
			return lvl
		}
	}
	return defaultVal
}
