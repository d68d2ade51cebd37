// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverPQ     = "pq"
	DriverPGX    = "pgx"
	DriverMemory = "memory"
)

type Config struct {
	DatabaseURL  string
	Driver       string
	Port         string
	StoreTimeout time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     slog.Level
	MemorySeed   string // fixture file for the memory driver
}

// Load reads the .env files (missing files are ignored) and then the
// environment. Variables already set in the environment win over .env.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		DatabaseURL:  getenv("DATABASE_URL"),
		Driver:       valueOr(getenv("DB_DRIVER"), DriverPQ),
		Port:         valueOr(getenv("API_PORT"), "8080"),
		StoreTimeout: 5 * time.Second,
		KafkaTopic:   valueOr(getenv("KAFKA_TOPIC"), "collection_changed"),
		LogLevel:     slog.LevelInfo,
		MemorySeed:   getenv("MEMORY_SEED"),
	}

	switch cfg.Driver {
	case DriverPQ, DriverPGX:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("config: DATABASE_URL is required for driver %q", cfg.Driver)
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("config: unknown DB_DRIVER %q", cfg.Driver)
	}

	if _, err := strconv.ParseUint(cfg.Port, 10, 16); err != nil {
		return Config{}, fmt.Errorf("config: invalid API_PORT %q", cfg.Port)
	}

	if v := getenv("STORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("config: invalid STORE_TIMEOUT %q", v)
		}
		cfg.StoreTimeout = d
	}

	for _, b := range strings.Split(getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q", v)
		}
	}
	return cfg, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
