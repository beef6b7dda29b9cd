// Package config loads relay settings from defaults, an optional TOML file
// and RELAY_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/relay/runagent"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: RELAY_LOG__LEVEL sets log.level.
const EnvPrefix = "RELAY_"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the client settings.
type Config struct {
	Endpoint  string        `koanf:"endpoint"`
	Model     string        `koanf:"model"`
	Models    []string      `koanf:"models"` // selectable with the model switch key; comma-separated in RELAY_MODELS
	UserID    string        `koanf:"user_id"`
	TenantID  string        `koanf:"tenant_id"`
	Timeout   time.Duration `koanf:"timeout"`    // wait for response headers, 0 = none; streaming is unbounded
	RateLimit float64       `koanf:"rate_limit"` // requests per second, 0 = unlimited

	Log struct {
		File  string `koanf:"file"`
		Level string `koanf:"level"`
	} `koanf:"log"`

	Tracing struct {
		Endpoint string `koanf:"endpoint"` // OTLP/HTTP collector, empty = disabled
	} `koanf:"tracing"`
}

func defaults() map[string]any {
	return map[string]any{
		"endpoint":   runagent.DefaultEndpoint,
		"model":      runagent.DefaultModel,
		"models":     []string{runagent.DefaultModel, "GOOGLE_API_KEY", "ANTHROPIC_API_KEY"},
		"timeout":    "0s",
		"rate_limit": 0,
		"log.file":   "",
		"log.level":  "info",
	}
}

// Load reads the configuration. An empty path skips the file layer; a path
// that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// envKey maps RELAY_LOG__LEVEL to log.level and RELAY_RATE_LIMIT to rate_limit.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// envValue splits list keys on commas: RELAY_MODELS=a,b sets two models.
func envValue(key, value string) (string, any) {
	key = envKey(key)
	if key != "models" {
		return key, value
	}
	var models []string
	for _, m := range strings.Split(value, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return key, models
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalid)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalid)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
	}
	return nil
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
