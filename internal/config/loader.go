package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CUERANK_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if CUERANK_CONFIG is set
//  3. env (prefix CUERANK_); a double underscore nests, so
//     CUERANK_RECOMMEND__OWNERSHIP_BONUS sets recommend.ownership_bonus
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.DedupeSize < 0:
		return invalid("dedupe_size must not be negative, got %d", c.DedupeSize)
	case c.MaxStandingsLimit < 1:
		return invalid("max_standings_limit must be positive, got %d", c.MaxStandingsLimit)
	case c.RecomputeTimeoutMS < 1:
		return invalid("recompute_timeout_ms must be positive, got %d", c.RecomputeTimeoutMS)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return invalid("rate limit must not be negative")
	case c.RateLimitRPS > 0 && c.RateLimitBurst < 1:
		return invalid("rate_limit_burst must be positive when rate_limit_rps is set")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return invalid("postgres_dsn is required for store %q", c.Store)
		}
	default:
		return invalid("unknown store %q", c.Store)
	}
	switch c.Lock {
	case LockLocal:
	case LockRedis:
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for lock %q", c.Lock)
		}
		if c.LockTTLMS < 1 {
			return invalid("lock_ttl_ms must be positive, got %d", c.LockTTLMS)
		}
	default:
		return invalid("unknown lock %q", c.Lock)
	}
	return nil
}
