// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package config

import (
	"errors"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CAMPAUTH_"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":      "log.format",
	"log-level":       "log.level",
	"http-addr":       "http.addr",
	"cookie-secure":   "http.cookie_secure",
	"allowed-origin":  "http.allowed_origins",
	"metrics-addr":    "metrics.addr",
	"database-url":    "database.url",
	"redis-url":       "redis.url",
	"store-backend":   "store.backend",
	"session-backend": "session.backend",
	"session-ttl":     "session.ttl",
}

// listKeys are read from the environment as comma-separated lists.
var listKeys = map[string]struct{}{
	"http.allowed_origins": {},
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "minimum log level (debug, info, warn, error)")
	fs.String("http-addr", d.HTTP.Addr, "HTTP listen address")
	fs.Bool("cookie-secure", d.HTTP.CookieSecure, "mark session cookies Secure")
	fs.StringSlice("allowed-origin", nil, "origin allowed to make credentialed CORS requests (repeatable)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL")
	fs.String("redis-url", d.Redis.URL, "Redis connection URL")
	fs.String("store-backend", d.Store.Backend, "user store backend (postgres or memory)")
	fs.String("session-backend", d.Session.Backend, "session backend (postgres, redis or memory)")
	fs.Duration("session-ttl", d.Session.TTL, "session lifetime (0 = no expiry)")
}

// mapProvider feeds a nested map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) { return m, nil }

func defaultMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"log":      map[string]any{"format": d.Log.Format, "level": d.Log.Level},
		"http": map[string]any{
			"addr":            d.HTTP.Addr,
			"cookie_secure":   d.HTTP.CookieSecure,
			"allowed_origins": []string{},
			"rate_limit": map[string]any{
				"burst":      d.HTTP.RateLimit.Burst,
				"per_second": d.HTTP.RateLimit.PerSecond,
			},
		},
		"metrics":  map[string]any{"addr": d.Metrics.Addr},
		"database": map[string]any{"url": d.Database.URL},
		"redis":    map[string]any{"url": d.Redis.URL},
		"store":    map[string]any{"backend": d.Store.Backend},
		"session":  map[string]any{"backend": d.Session.Backend, "ttl": d.Session.TTL.String()},
		"auth": map[string]any{
			"min_password_length": d.Auth.MinPasswordLength,
			"max_password_length": d.Auth.MaxPasswordLength,
			"email_pattern":       d.Auth.EmailPattern,
			"public_id_pattern":   d.Auth.PublicIDPattern,
			"hash_concurrency":    d.Auth.HashConcurrency,
		},
	}
}

// Load builds and validates the configuration. path may be empty; flags may
// be nil. Only flags the user actually set override lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaultMap()), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
		}
	}

	// Keys contain underscores themselves, so env names are matched against
	// the known key set instead of splitting on every underscore.
	envKeys := make(map[string]string)
	for _, key := range k.Keys() {
		envKeys[EnvPrefix+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, any) {
		key := envKeys[name]
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
