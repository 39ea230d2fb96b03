package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBConn    string
	LogLevel  string
	JWTSecret string

	// Card authentication tunables
	ChallengeTTL   time.Duration
	CardTokenTTL   time.Duration
	MaxPinAttempts int

	// SMTP settings for ops alerts
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	AdminEmail   string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=pay sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		ChallengeTTL:   time.Duration(getEnvInt("CHALLENGE_TTL_SECONDS", 300)) * time.Second,
		CardTokenTTL:   time.Duration(getEnvInt("CARD_TOKEN_TTL_SECONDS", 3600)) * time.Second,
		MaxPinAttempts: getEnvInt("MAX_PIN_ATTEMPTS", 3),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "noreply@badgepay.local"),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ChallengeTTL <= 0 {
		return nil, fmt.Errorf("CHALLENGE_TTL_SECONDS must be positive")
	}
	if cfg.MaxPinAttempts <= 0 {
		return nil, fmt.Errorf("MAX_PIN_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}
