// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey     string
	TelegramToken    string
	TelegramChatID   int64
	Pairs            []string
	Interval         string
	CandleCount      int
	BacktestDays     int
	StrategyCount    int
	MinAgreement     float64
	MinConfidence    float64
	WalkForwardMin   int
	DriftThreshold   float64
	WorkerCount      int
	RequestTimeout   int
	LogLevel         string
	LogFile          string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string
	RandomSeed       int64
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		TwelveAPIKey:     os.Getenv("TWELVE_API_KEY"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		Pairs:            splitList(getEnvWithDefault("PAIRS", "EURUSD,GBPUSD,USDJPY")),
		Interval:         getEnvWithDefault("INTERVAL", "1h"),
		CandleCount:      getEnvIntWithDefault("CANDLE_COUNT", 1000),
		BacktestDays:     getEnvIntWithDefault("BACKTEST_DAYS", 1460),
		StrategyCount:    getEnvIntWithDefault("STRATEGY_COUNT", 10000),
		MinAgreement:     getEnvFloatWithDefault("MIN_AGREEMENT", 0.80),
		MinConfidence:    getEnvFloatWithDefault("MIN_CONFIDENCE", 80.0),
		WalkForwardMin:   getEnvIntWithDefault("WALK_FORWARD_MIN_PERIODS", 3),
		DriftThreshold:   getEnvFloatWithDefault("DRIFT_THRESHOLD", 0.15),
		WorkerCount:      getEnvIntWithDefault("WORKER_COUNT", 0),
		RequestTimeout:   getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:          getEnvWithDefault("LOG_FILE", ""),
		DatabaseHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvWithDefault("DB_PORT", "5432"),
		DatabaseUser:     getEnvWithDefault("DB_USER", "postgres"),
		DatabasePassword: os.Getenv("DB_PASSWORD"),
		DatabaseName:     getEnvWithDefault("DB_NAME", "strategist"),
		DatabaseSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
		RandomSeed:       getEnvInt64WithDefault("RANDOM_SEED", 42),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MinAgreement < 0 || c.MinAgreement > 1 {
		return fmt.Errorf("MIN_AGREEMENT must be in [0,1], got %.2f", c.MinAgreement)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("MIN_CONFIDENCE must be in [0,100], got %.1f", c.MinConfidence)
	}
	if c.DriftThreshold <= 0 || c.DriftThreshold >= 1 {
		return fmt.Errorf("DRIFT_THRESHOLD must be in (0,1), got %.2f", c.DriftThreshold)
	}
	if c.StrategyCount <= 0 {
		return fmt.Errorf("STRATEGY_COUNT must be positive, got %d", c.StrategyCount)
	}
	if c.WalkForwardMin < 1 {
		return fmt.Errorf("WALK_FORWARD_MIN_PERIODS must be at least 1, got %d", c.WalkForwardMin)
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("PAIRS must name at least one pair")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
