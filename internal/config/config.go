// Package config defines service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file named by
// CUERANK_CONFIG, then CUERANK_* environment variables.
package config

import (
	"runtime"
	"time"

	"github.com/okian/cuerank/internal/domain/recommend"
)

// Store and lock backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	LockLocal     = "local"
	LockRedis     = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the recompute queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the finalized-tournament cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxStandingsLimit caps GET /v1/scopes/{scope}/standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	Store       string `koanf:"store"`
	PostgresDSN string `koanf:"postgres_dsn"`

	Lock          string `koanf:"lock"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	LockTTLMS     int    `koanf:"lock_ttl_ms"`

	RecomputeTimeoutMS int `koanf:"recompute_timeout_ms"`

	// RateLimitRPS and RateLimitBurst apply per client address. Zero disables.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// TierTableFile optionally replaces the built-in tier table.
	TierTableFile string `koanf:"tier_table_file"`

	// Recommend overrides the recommendation weights.
	Recommend recommend.Weights `koanf:"recommend"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		MaxStandingsLimit:  500,
		Store:              StoreMemory,
		Lock:               LockLocal,
		RedisAddr:          "localhost:6379",
		LockTTLMS:          30_000,
		RecomputeTimeoutMS: 10_000,
		RateLimitRPS:       50,
		RateLimitBurst:     100,
		Recommend:          recommend.DefaultWeights(),
	}
}

// LockTTL returns LockTTLMS as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMS) * time.Millisecond
}

// RecomputeTimeout returns RecomputeTimeoutMS as a duration.
func (c *Config) RecomputeTimeout() time.Duration {
	return time.Duration(c.RecomputeTimeoutMS) * time.Millisecond
}
