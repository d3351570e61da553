package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HOOPS_CONFIG is set
//  3. env (prefix HOOPS_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("HOOPS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// HOOPS_NOTIFY_QUEUE_SIZE -> notify_queue_size; keys stay flat.
	envProvider := env.Provider("HOOPS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "hoops_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case strings.TrimSpace(c.LeaderboardID) == "":
		return invalid("leaderboard_id must not be empty")
	case c.GracePeriodMS < 0:
		return invalid("grace_period_ms must not be negative, got %d", c.GracePeriodMS)
	case c.TopRankNotify < 0:
		return invalid("top_rank_notify must not be negative, got %d", c.TopRankNotify)
	case c.NotifyQueueSize < 1:
		return invalid("notify_queue_size must be positive, got %d", c.NotifyQueueSize)
	case c.DedupeSize < 1:
		return invalid("dedupe_size must be positive, got %d", c.DedupeSize)
	case c.MaxLeaderboardLimit < 1:
		return invalid("max_leaderboard_limit must be positive, got %d", c.MaxLeaderboardLimit)
	case c.CatalogPath == "":
		return invalid("catalog_path must not be empty")
	case c.JWTSecret == "":
		return invalid("jwt_secret must be set")
	case c.LogFormat != "json" && c.LogFormat != "text":
		return invalid("log_format must be json or text, got %q", c.LogFormat)
	}
	switch c.PlayerStore {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path must be set for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return invalid("postgres_dsn must be set for the postgres store")
		}
	default:
		return invalid("unknown player_store %q", c.PlayerStore)
	}
	return nil
}
