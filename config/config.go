package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port        int
	LogLevel    string
	CORSOrigins []string
	MaxUploadMB int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Model artifact configuration
	ModelPath string

	// Outbound forecast notifications
	WebhookURLs []string
}

// DatabaseConfig holds the historical-records store settings
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	AutoMigrate  bool
	QueryTimeout time.Duration
	HistoryLimit int
}

// RedisConfig holds Redis settings used for forecast counters
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 32),

		Database: DatabaseConfig{
			Enabled:      getEnvOrDefault("DB_ENABLED", "true") == "true",
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "5432"),
			Name:         getEnvOrDefault("DB_NAME", "summerberry"),
			User:         getEnvOrDefault("DB_USER", "summerberry"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			SSLMode:      getEnvOrDefault("DB_SSLMODE", "disable"),
			AutoMigrate:  getEnvOrDefault("DB_AUTO_MIGRATE", "false") == "true",
			QueryTimeout: getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
			HistoryLimit: getEnvInt("HISTORY_LIMIT", 30),
		},

		Redis: RedisConfig{
			Enabled:  getEnvOrDefault("REDIS_ENABLED", "false") == "true",
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
		},

		ModelPath:   getEnvOrDefault("MODEL_PATH", "./models/harvest_model.yaml"),
		WebhookURLs: getEnvList("WEBHOOK_URLS", ""),
	}
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvDuration parses values like "5s" or "1500ms"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key, defaultValue string) []string {
	raw := getEnvOrDefault(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
