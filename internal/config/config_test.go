package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DATABASE_URL": "postgres://localhost/db"}))
	require.NoError(t, err)

	assert.Equal(t, DriverPQ, cfg.Driver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "collection_changed", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_DRIVER":     "memory",
		"API_PORT":      "9090",
		"STORE_TIMEOUT": "750ms",
		"KAFKA_BROKERS": "k1:9092, k2:9092,,",
		"KAFKA_TOPIC":   "ledger",
		"LOG_LEVEL":     "debug",
		"MEMORY_SEED":   "testdata/seed.json",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "ledger", cfg.KafkaTopic)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "testdata/seed.json", cfg.MemorySeed)
}

func TestFromEnv_Invalid(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"missing url":    {"DB_DRIVER": "pgx"},
		"unknown driver": {"DB_DRIVER": "mysql"},
		"bad port":       {"DB_DRIVER": "memory", "API_PORT": "http"},
		"bad timeout":    {"DB_DRIVER": "memory", "STORE_TIMEOUT": "soon"},
		"zero timeout":   {"DB_DRIVER": "memory", "STORE_TIMEOUT": "0s"},
		"bad level":      {"DB_DRIVER": "memory", "LOG_LEVEL": "loud"},
	} {
		_, err := FromEnv(env(vars))
		assert.Error(t, err, name)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DRIVER=memory\nAPI_PORT=7070\n"), 0o600))
	t.Setenv("DB_DRIVER", "")
	t.Setenv("API_PORT", "")
	os.Unsetenv("DB_DRIVER")
	os.Unsetenv("API_PORT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
