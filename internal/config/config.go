package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI   string
	HTTPAddr      string
	TelegramToken string
	AIAPIKey      string
	AIBaseURL     string
	AIModel       string
	RetentionDays int
	CheckInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	return &Config{
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		HTTPAddr:      getEnvOrDefault("HTTP_ADDR", ":8080"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		AIAPIKey:      os.Getenv("AI_API_KEY"),
		AIBaseURL:     getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:       getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		RetentionDays: getEnvInt("LEDGER_RETENTION_DAYS", 7),
		CheckInterval: getEnvDuration("ALARM_CHECK_INTERVAL", 1*time.Minute),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
