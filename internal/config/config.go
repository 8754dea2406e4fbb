// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration. Binaries layer flag definitions
// on top of these values, so flags override environment which overrides the
// defaults below.
type Config struct {
	PostgresDSN     string `env:"POSTGRES_DSN"`
	ClickHouseDSN   string `env:"CLICKHOUSE_DSN"`
	UseMemory       bool   `env:"USE_MEMORY" envDefault:"false"`
	ServerAddr      string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	SimulationCount int    `env:"SIMULATION_COUNT" envDefault:"10000"`
	CalendarBaseURL string `env:"CALENDAR_BASE_URL" envDefault:"https://finnhub.io/api/v1"`
	CalendarAPIKey  string `env:"CALENDAR_API_KEY"`
	LookbackYears   int    `env:"HISTORY_LOOKBACK_YEARS" envDefault:"3"`
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.ClickHouseDSN = os.Getenv("CLICKHOUSE_DSN")
	cfg.UseMemory = getEnvBoolWithDefault("USE_MEMORY", false)
	cfg.ServerAddr = getEnvWithDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.SimulationCount = getEnvIntWithDefault("SIMULATION_COUNT", 10000)
	cfg.CalendarBaseURL = getEnvWithDefault("CALENDAR_BASE_URL", "https://finnhub.io/api/v1")
	cfg.CalendarAPIKey = os.Getenv("CALENDAR_API_KEY")
	cfg.LookbackYears = getEnvIntWithDefault("HISTORY_LOOKBACK_YEARS", 3)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
