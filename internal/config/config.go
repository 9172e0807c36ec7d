package config

import (
	"os"
	"strconv"
)

// Config holds all application-level settings.
type Config struct {
	// Server
	ServerAddr string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PostgreSQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Checkin
	CheckinMinCredits int // Minimum credit reward for daily checkin
	CheckinMaxCredits int // Maximum credit reward for daily checkin

	// Admin Authentication
	AdminToken string // Bearer token for admin API access
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ServerAddr:        envOr("SERVER_ADDR", ":8080"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     envOr("REDIS_PASSWORD", ""),
		RedisDB:           envIntOr("REDIS_DB", 0),
		DBHost:            envOr("DB_HOST", "localhost"),
		DBPort:            envOr("DB_PORT", "5432"),
		DBUser:            envOr("DB_USER", "postgres"),
		DBPassword:        envOr("DB_PASSWORD", "postgres"),
		DBName:            envOr("DB_NAME", "inkpost"),
		DBSSLMode:         envOr("DB_SSLMODE", "disable"),
		CheckinMinCredits: envIntOr("CHECKIN_MIN_CREDITS", 5),
		CheckinMaxCredits: envIntOr("CHECKIN_MAX_CREDITS", 15),
		AdminToken:        envOr("ADMIN_TOKEN", ""),
	}
}

// ─── helpers ───

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
