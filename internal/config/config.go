// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package config loads campauth configuration from defaults, a YAML file,
// CAMPAUTH_* environment variables and command-line flags, in that order of
// increasing priority.
package config

import (
	"net/url"
	"slices"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/internal/logging"
)

// Store and session backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// Config is the effective process configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" yaml:"log"`
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis"`
	Store    StoreConfig    `koanf:"store" yaml:"store"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// HTTPConfig controls the public listener and cookie attributes.
// AllowedOrigins enables credentialed CORS for the listed origins.
type HTTPConfig struct {
	Addr           string          `koanf:"addr" yaml:"addr"`
	CookieSecure   bool            `koanf:"cookie_secure" yaml:"cookie_secure"`
	AllowedOrigins []string        `koanf:"allowed_origins" yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig throttles signin and register per client IP. A zero Burst
// disables throttling.
type RateLimitConfig struct {
	Burst     int     `koanf:"burst" yaml:"burst"`
	PerSecond float64 `koanf:"per_second" yaml:"per_second"`
}

// Enabled reports whether credential endpoints are throttled.
func (r RateLimitConfig) Enabled() bool { return r.Burst > 0 }

// MetricsConfig controls the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// DatabaseConfig points at PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url" yaml:"url"`
}

// RedisConfig points at Redis.
type RedisConfig struct {
	URL string `koanf:"url" yaml:"url"`
}

// StoreConfig selects the user repository backend.
type StoreConfig struct {
	Backend string `koanf:"backend" yaml:"backend"`
}

// SessionConfig selects the session registry backend. A zero TTL means
// sessions never expire.
type SessionConfig struct {
	Backend string        `koanf:"backend" yaml:"backend"`
	TTL     time.Duration `koanf:"ttl" yaml:"ttl"`
}

// MarshalYAML renders TTL as a duration string.
func (s SessionConfig) MarshalYAML() (any, error) {
	return struct {
		Backend string `yaml:"backend"`
		TTL     string `yaml:"ttl"`
	}{s.Backend, s.TTL.String()}, nil
}

// AuthConfig carries the validation rules and hashing limits.
type AuthConfig struct {
	MinPasswordLength int    `koanf:"min_password_length" yaml:"min_password_length"`
	MaxPasswordLength int    `koanf:"max_password_length" yaml:"max_password_length"`
	EmailPattern      string `koanf:"email_pattern" yaml:"email_pattern"`
	PublicIDPattern   string `koanf:"public_id_pattern" yaml:"public_id_pattern"`
	HashConcurrency   int    `koanf:"hash_concurrency" yaml:"hash_concurrency"`
}

// Rules compiles the configured validation rules.
func (a AuthConfig) Rules() (auth.Rules, error) {
	return auth.NewRules(a.MinPasswordLength, a.MaxPasswordLength, a.EmailPattern, a.PublicIDPattern)
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Log:     LogConfig{Format: "json", Level: "info"},
		HTTP: HTTPConfig{
			Addr:      ":8080",
			RateLimit: RateLimitConfig{Burst: 10, PerSecond: 0.5},
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Store:   StoreConfig{Backend: BackendPostgres},
		Session: SessionConfig{Backend: BackendPostgres},
		Auth: AuthConfig{
			MinPasswordLength: auth.DefaultMinPasswordLength,
			MaxPasswordLength: auth.DefaultMaxPasswordLength,
			EmailPattern:      auth.DefaultEmailPattern,
			PublicIDPattern:   auth.DefaultPublicIDPattern,
		},
	}
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level %q is not a level", c.Log.Level)
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	for _, origin := range c.HTTP.AllowedOrigins {
		if origin == "*" {
			return invalid("http.allowed_origins", "http.allowed_origins cannot contain '*' with credentialed cookies")
		}
	}
	if c.HTTP.RateLimit.Burst < 0 {
		return invalid("http.rate_limit.burst", "http.rate_limit.burst must not be negative")
	}
	if c.HTTP.RateLimit.Enabled() && c.HTTP.RateLimit.PerSecond <= 0 {
		return invalid("http.rate_limit.per_second", "http.rate_limit.per_second must be positive")
	}

	switch c.Store.Backend {
	case BackendPostgres, BackendMemory:
	default:
		return invalid("store.backend", "store.backend must be postgres or memory, got %q", c.Store.Backend)
	}
	switch c.Session.Backend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return invalid("session.backend", "session.backend must be postgres, redis or memory, got %q", c.Session.Backend)
	}
	if c.NeedsDatabase() && c.Database.URL == "" {
		return invalid("database.url", "database.url is required for the postgres backend")
	}
	if c.Session.Backend == BackendRedis && c.Redis.URL == "" {
		return invalid("redis.url", "redis.url is required for the redis session backend")
	}
	if c.Session.TTL < 0 {
		return invalid("session.ttl", "session.ttl must not be negative")
	}

	if c.Auth.HashConcurrency < 0 {
		return invalid("auth.hash_concurrency", "auth.hash_concurrency must not be negative")
	}
	if _, err := c.Auth.Rules(); err != nil {
		return invalid("auth", "invalid auth rules: %v", err)
	}
	return nil
}

// NeedsDatabase reports whether any backend is PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.Store.Backend == BackendPostgres || c.Session.Backend == BackendPostgres
}

// Redacted returns a copy with credentials removed from connection URLs.
func (c Config) Redacted() Config {
	c.Database.URL = redactURL(c.Database.URL)
	c.Redis.URL = redactURL(c.Redis.URL)
	return c
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_MARSHAL_FAILED").Wrap(err)
	}
	return out, nil
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}
