package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
	require.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	cfg := Default()
	cfg.Catalog.Feed = "data/feed.csv"
	cfg.Catalog.Watch = true
	cfg.Store = StoreConfig{Type: "sqlite", DSN: "data/catalog.db"}
	cfg.Rate = RateConfig{RPS: 5, Burst: 10}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	require.NoError(t, got.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, env(map[string]string{
		"PORT":         "9090",
		"DATABASE_URL": "postgres://u@h/db",
		"REDIS_URL":    "redis://localhost:6379/0",
		"RATE_RPS":     "2.5",
		"CATALOG_FEED": " feed.csv ",
		"LOG_LEVEL":    "debug",

		"CATALOG_WEBHOOK_URL":    "https://hooks.example.com/catalog",
		"CATALOG_WEBHOOK_SECRET": "s3cret",
		"WEBHOOK_MAX_ATTEMPTS":   "3",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StoreConfig{Type: "postgres", DSN: "postgres://u@h/db"}, cfg.Store)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Broker.RedisURL)
	assert.Equal(t, 2.5, cfg.Rate.RPS)
	assert.Equal(t, 4, cfg.Rate.Burst)
	assert.Equal(t, "feed.csv", cfg.Catalog.Feed)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []WebhookTarget{{URL: "https://hooks.example.com/catalog", Secret: "s3cret"}}, cfg.Webhooks.Targets)
	assert.Equal(t, 3, cfg.Webhooks.MaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvStoreTypeWins(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, env(map[string]string{
		"DATABASE_URL": "postgres://u@h/db",
		"STORE_TYPE":   "sqlite",
		"STORE_DSN":    "x.db",
	})))
	assert.Equal(t, StoreConfig{Type: "sqlite", DSN: "x.db"}, cfg.Store)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	for _, kv := range [][2]string{{"PORT", "eighty"}, {"RATE_RPS", "fast"}, {"RATE_BURST", "1.5"}, {"WEBHOOK_MAX_ATTEMPTS", "0"}} {
		err := ApplyEnv(Default(), env(map[string]string{kv[0]: kv[1]}))
		require.ErrorIs(t, err, ErrInvalidConfig, kv[0])
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*AppConfig){
		"unknown store":    func(c *AppConfig) { c.Store.Type = "mongo" },
		"postgres no dsn":  func(c *AppConfig) { c.Store.Type = "postgres" },
		"port range":       func(c *AppConfig) { c.Server.Port = 70000 },
		"negative rate":    func(c *AppConfig) { c.Rate.RPS = -1 },
		"log level":        func(c *AppConfig) { c.Log.Level = "loud" },
		"watch needs feed": func(c *AppConfig) { c.Catalog.Watch = true },
		"webhook url":      func(c *AppConfig) { c.Webhooks.Targets = []WebhookTarget{{URL: "ftp://x"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
