// Package config loads service settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port                int `yaml:"port"`
	RequestTimeoutSecs  int `yaml:"request_timeout_secs"`
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs"`
}

// CatalogConfig names the catalog sources and whether the feed is watched for changes.
type CatalogConfig struct {
	Feed            string `yaml:"feed"`
	Seed            string `yaml:"seed"`
	Watch           bool   `yaml:"watch"`
	WatchDebounceMs int    `yaml:"watch_debounce_ms"`
}

// StoreConfig selects the catalog persistence backend: memory, sqlite or postgres.
type StoreConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// BrokerConfig switches catalog events to Redis pub/sub when RedisURL is set.
type BrokerConfig struct {
	RedisURL string `yaml:"redis_url"`
}

// RateConfig is the per-client token bucket. RPS <= 0 disables limiting.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// WebhookConfig lists subscribers that receive catalog events as signed POSTs.
type WebhookConfig struct {
	Targets     []WebhookTarget `yaml:"targets,omitempty"`
	MaxAttempts int             `yaml:"max_attempts"`
}

type WebhookTarget struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server   ServerConfig  `yaml:"server"`
	Catalog  CatalogConfig `yaml:"catalog"`
	Store    StoreConfig   `yaml:"store"`
	Broker   BrokerConfig  `yaml:"broker"`
	Rate     RateConfig    `yaml:"rate"`
	Webhooks WebhookConfig `yaml:"webhooks"`
	Log      LogConfig     `yaml:"log"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() *AppConfig {
	cfg := &AppConfig{
		Catalog: CatalogConfig{Seed: "data/stores.json"},
		Store:   StoreConfig{Type: "memory"},
		Log:     LogConfig{Level: "info"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 10
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = 15
	}
	if cfg.Catalog.WatchDebounceMs == 0 {
		cfg.Catalog.WatchDebounceMs = 500
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Rate.RPS > 0 && cfg.Rate.Burst == 0 {
		cfg.Rate.Burst = int(cfg.Rate.RPS) * 2
		if cfg.Rate.Burst < 1 {
			cfg.Rate.Burst = 1
		}
	}
	if cfg.Webhooks.MaxAttempts == 0 {
		cfg.Webhooks.MaxAttempts = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// ApplyEnv overlays environment variables on cfg. DATABASE_URL alone selects the
// postgres store; STORE_TYPE and STORE_DSN take precedence over it.
func ApplyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		cfg.Server.Port = p
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Store.Type = "postgres"
		cfg.Store.DSN = v
	}
	str("STORE_TYPE", &cfg.Store.Type)
	str("STORE_DSN", &cfg.Store.DSN)
	str("REDIS_URL", &cfg.Broker.RedisURL)
	str("CATALOG_FEED", &cfg.Catalog.Feed)
	str("CATALOG_SEED", &cfg.Catalog.Seed)
	str("LOG_LEVEL", &cfg.Log.Level)
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: RATE_RPS=%q", ErrInvalidConfig, v)
		}
		cfg.Rate.RPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		b, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_BURST=%q", ErrInvalidConfig, v)
		}
		cfg.Rate.Burst = b
	}
	if v, ok := lookup("CATALOG_WEBHOOK_URL"); ok && strings.TrimSpace(v) != "" {
		secret, _ := lookup("CATALOG_WEBHOOK_SECRET")
		cfg.Webhooks.Targets = append(cfg.Webhooks.Targets, WebhookTarget{URL: strings.TrimSpace(v), Secret: secret})
	}
	if v, ok := lookup("WEBHOOK_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: WEBHOOK_MAX_ATTEMPTS=%q", ErrInvalidConfig, v)
		}
		cfg.Webhooks.MaxAttempts = n
	}
	applyDefaults(cfg)
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *AppConfig) Validate() error {
	switch strings.ToLower(c.Store.Type) {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: postgres store needs a dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store type %q", ErrInvalidConfig, c.Store.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Rate.RPS < 0 || c.Rate.Burst < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	for _, t := range c.Webhooks.Targets {
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: webhook url %q", ErrInvalidConfig, t.URL)
		}
	}
	if c.Catalog.Watch && c.Catalog.Feed == "" {
		return fmt.Errorf("%w: catalog.watch requires catalog.feed", ErrInvalidConfig)
	}
	return nil
}

func (c *AppConfig) Addr() string { return ":" + strconv.Itoa(c.Server.Port) }

func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}

func (c *AppConfig) WatchDebounce() time.Duration {
	return time.Duration(c.Catalog.WatchDebounceMs) * time.Millisecond
}
