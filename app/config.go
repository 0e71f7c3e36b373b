package app

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/tsiemens/ukcgt/date"
)

const (
	DefaultMaxRetries = 25
	DefaultOutputDir  = "ukcgt-out"
)

type Config struct {
	// Path of the JSON-lines event log. Empty keeps events in memory for the
	// run only.
	StorePath        string
	DateFormat       string
	PrintAllDecimals bool
	// Number of assets processed in parallel.
	Workers    int
	OutputDir  string
	MaxRetries int
}

func DefaultConfig() *Config {
	return &Config{
		DateFormat: date.DefaultFormat,
		Workers:    runtime.NumCPU(),
		OutputDir:  DefaultOutputDir,
		MaxRetries: DefaultMaxRetries,
	}
}

// LoadConfig reads envFile (or ./.env, if present, when envFile is empty)
// into the environment, then reads the UKCGT_ variables over the defaults.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("Loading env file %q: %w", envFile, err)
		}
	} else {
		// .env is optional
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	cfg.StorePath = getEnv("UKCGT_STORE", cfg.StorePath)
	cfg.DateFormat = getEnv("UKCGT_DATE_FMT", cfg.DateFormat)

	var err error
	if cfg.Workers, err = getEnvInt("UKCGT_WORKERS", cfg.Workers); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getEnvInt("UKCGT_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// CommandRetries is the retry limit for one command. Every worker may be
// updating the same tax year, so a command can lose to each of them in turn.
func (c *Config) CommandRetries() int {
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	return c.MaxRetries * workers
}

func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("Workers must be at least 1 (got %d)", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MaxRetries cannot be negative (got %d)", c.MaxRetries)
	}
	if c.DateFormat == "" {
		return fmt.Errorf("DateFormat is empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("Invalid %s %q: %w", key, valueStr, err)
	}
	return value, nil
}
