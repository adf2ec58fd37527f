// config/config.go - Environment configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main.go needs to wire the service.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	CORSOrigins string
	RedisURL    string

	RateLimitRPS   float64
	RateLimitBurst int

	NotifyPollInterval time.Duration
	NotifyBatchSize    int

	SeedOnStart bool
}

// Load reads .env (if present) and the process environment.
// The returned warnings are non-fatal and meant for the startup log.
func Load() (*Config, []string) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, ".env file not found, using system environment variables")
	}

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        databaseURL(),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CORSOrigins:        getEnv("CORS_ORIGINS", "http://localhost:3000"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
		NotifyPollInterval: getEnvDuration("NOTIFY_POLL_INTERVAL", 2*time.Second),
		NotifyBatchSize:    getEnvInt("NOTIFY_BATCH_SIZE", 100),
		SeedOnStart:        getEnvBool("SEED_ON_START", true),
	}

	if cfg.IsProduction() && cfg.CORSOrigins == "http://localhost:3000" {
		warnings = append(warnings, "CORS_ORIGINS not properly configured for production")
	}
	return cfg, warnings
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive (rps=%v burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	// Fallback to individual parameters
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "degentalk"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultVal
}
