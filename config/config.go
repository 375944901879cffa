// Package config loads runtime configuration from the environment. A
// .env file is honored when present; every value has a working default
// so the server runs with no configuration at all.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/crestline/lending-engine/loan"
)

// Config holds all runtime settings.
type Config struct {
	Port       int
	DBPath     string
	RedisAddr  string // empty = in-memory cache
	LedgerPath string // transaction ledger CSV for credit scoring; empty = disabled
	LogLevel   string

	// Lending policy overrides.
	FloorAnnualRate  decimal.Decimal
	AffordabilityCap decimal.Decimal
	MinTotalInterest decimal.Decimal
}

// Load reads configuration from the environment, after loading .env if
// one exists.
func Load() *Config {
	_ = godotenv.Load()

	defaults := loan.DefaultPolicy()
	return &Config{
		Port:             getEnvInt("PORT", 8080),
		DBPath:           getEnvString("DB_PATH", "lending.db"),
		RedisAddr:        getEnvString("REDIS_ADDR", ""),
		LedgerPath:       getEnvString("LEDGER_CSV_PATH", ""),
		LogLevel:         getEnvString("LOG_LEVEL", "info"),
		FloorAnnualRate:  getEnvDecimal("FLOOR_ANNUAL_RATE", defaults.FloorAnnualRate),
		AffordabilityCap: getEnvDecimal("AFFORDABILITY_CAP", defaults.AffordabilityCap),
		MinTotalInterest: getEnvDecimal("MIN_TOTAL_INTEREST", defaults.MinTotalInterest),
	}
}

// Policy assembles the lending policy from the loaded values.
func (c *Config) Policy() loan.Policy {
	return loan.Policy{
		FloorAnnualRate:  c.FloorAnnualRate,
		AffordabilityCap: c.AffordabilityCap,
		MinTotalInterest: c.MinTotalInterest,
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
