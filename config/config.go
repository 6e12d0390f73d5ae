// Package config loads the process-wide settings: the connection list,
// pool limits and logging.
//
// Sources are applied in order, later ones overriding earlier ones:
// defaults, the YAML file, RECORDSTORE_ environment variables and command
// line flags. Nested keys in environment variables are separated by a
// double underscore:
//
//	RECORDSTORE_CONNECTIONS__PRIMARY__PASSWORD=secret
//
// Connections are not validated here. An entry is checked when its role is
// opened.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RECORDSTORE_"

// Config is the loaded configuration.
type Config struct {
	// Connections maps a role to its connection entry.
	Connections map[string]dialect.Config `koanf:"connections" yaml:"connections"`
	Pool        Pool                      `koanf:"pool" yaml:"pool"`
	Log         Log                       `koanf:"log" yaml:"log"`
	// SlowQuery is the threshold above which statements are logged.
	SlowQuery time.Duration `koanf:"slow_query" yaml:"slow_query"`
	// Debug logs every statement.
	Debug bool `koanf:"debug" yaml:"debug"`
}

// Pool holds the connection pool limits.
type Pool struct {
	MaxOpen     int           `koanf:"max_open" yaml:"max_open"`
	MaxIdle     int           `koanf:"max_idle" yaml:"max_idle"`
	MaxLifetime time.Duration `koanf:"max_lifetime" yaml:"max_lifetime"`
}

// Log holds the logger settings.
type Log struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Defaults returns the values applied before any source.
func Defaults() map[string]any {
	return map[string]any{
		"pool.max_open":     10,
		"pool.max_idle":     5,
		"pool.max_lifetime": "30m",
		"log.level":         "info",
		"log.format":        "text",
		"slow_query":        "200ms",
		"debug":             false,
	}
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"slow-query": "slow_query",
	"debug":      "debug",
	"max-open":   "pool.max_open",
}

// Load reads the configuration. path may be empty to skip the file and
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// envKey maps RECORDSTORE_CONNECTIONS__PRIMARY__SERVER to
// connections.primary.server.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// ConnectionList returns the connection entries sorted by role, with Role
// set from the map key.
func (c *Config) ConnectionList() []dialect.Config {
	roles := make([]string, 0, len(c.Connections))
	for role := range c.Connections {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	list := make([]dialect.Config, len(roles))
	for i, role := range roles {
		list[i] = c.Connections[role]
		list[i].Role = role
	}
	return list
}

// Redacted returns a copy of c with every password masked.
func (c *Config) Redacted() *Config {
	r := *c
	r.Connections = make(map[string]dialect.Config, len(c.Connections))
	for role, conn := range c.Connections {
		r.Connections[role] = conn.Redacted()
	}
	return &r
}

// ProviderOptions returns the connection provider options of c. A nil
// logger discards connection events.
func (c *Config) ProviderOptions(logger *slog.Logger) []sql.ProviderOption {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := []sql.ProviderOption{
		sql.WithLogger(logger),
		sql.WithPool(c.Pool.MaxOpen, c.Pool.MaxIdle, c.Pool.MaxLifetime),
	}
	if c.Debug {
		opts = append(opts, sql.WithDebug())
	}
	if c.SlowQuery > 0 {
		opts = append(opts, sql.WithStats(sql.WithSlowThreshold(c.SlowQuery), sql.WithSlowQueryLog(logger)))
	}
	return opts
}

// Provider returns a connection provider over the connection list.
func (c *Config) Provider(logger *slog.Logger) *sql.Provider {
	return sql.NewProvider(c.ConnectionList(), c.ProviderOptions(logger)...)
}

// Logger returns a logger writing to w in the configured format and level.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, recordstore.NewConfigurationError("log level", c.Log.Level, "unknown level")
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, recordstore.NewConfigurationError("log format", c.Log.Format, "expected text or json")
	}
}
