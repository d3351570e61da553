// Package config defines service configuration and its loader.
package config

import (
	"runtime"
)

// Player-state backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// LeaderboardID is the leaderboard scores are submitted to.
	LeaderboardID string `koanf:"leaderboard_id"`
	// GracePeriodMS extends the session end for final batches.
	GracePeriodMS int `koanf:"grace_period_ms"`
	// TopRankNotify is the rank at or above which a score triggers a
	// leaderboard-update broadcast.
	TopRankNotify int `koanf:"top_rank_notify"`

	// NotifyQueueSize bounds the in-memory notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`
	// NotifyWorkers sets the number of delivery workers.
	NotifyWorkers int `koanf:"notify_workers"`

	// DedupeSize bounds the idempotency-key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// PlayerStore selects memory, sqlite or postgres.
	PlayerStore string `koanf:"player_store"`
	SQLitePath  string `koanf:"sqlite_path"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// CatalogPath points at the YAML or JSON remote-config file.
	CatalogPath string `koanf:"catalog_path"`
	// CatalogWatch reloads the catalog when the file changes.
	CatalogWatch bool `koanf:"catalog_watch"`

	// JWTSecret verifies HS256 bearer tokens; JWTIssuer, when set, must match.
	JWTSecret string `koanf:"jwt_secret"`
	JWTIssuer string `koanf:"jwt_issuer"`
	// AdminToken guards /admin routes. Empty disables them.
	AdminToken string `koanf:"admin_token"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// OTelEndpoint enables OTLP/HTTP tracing when set.
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		LeaderboardID:       "scores",
		GracePeriodMS:       2000,
		TopRankNotify:       10,
		NotifyQueueSize:     10_000,
		NotifyWorkers:       runtime.NumCPU(),
		DedupeSize:          100_000,
		PlayerStore:         StoreMemory,
		SQLitePath:          "hoops.db",
		CatalogPath:         "catalog.yaml",
		CatalogWatch:        true,
		JWTIssuer:           "hoops",
		MaxLeaderboardLimit: 100,
	}
}
