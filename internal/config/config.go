// Package config loads the agent's process-wide configuration. Values come
// from defaults, an optional YAML file, and PWSHD_-prefixed environment
// variables, in increasing priority. Configuration is read once at startup
// and treated as read-only afterwards.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "PWSHD"

// Config holds the agent's tunables.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// DefaultTimeoutSeconds is applied to tool calls that omit a timeout.
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"`

	// MaxCommandLength caps accepted command length in characters.
	MaxCommandLength int `mapstructure:"max_command_length" validate:"gt=0"`

	// TermGracePeriod is how long a timed-out process may take to exit after
	// the graceful termination signal before it is force-killed.
	TermGracePeriod time.Duration `mapstructure:"term_grace_period" validate:"gt=0"`
}

func defaults() map[string]any {
	return map[string]any{
		"listen_addr":             "127.0.0.1:8383",
		"default_timeout_seconds": 300,
		"max_command_length":      10000,
		"term_grace_period":       5 * time.Second,
	}
}

// Load reads configuration from the file at path (optional; empty means
// defaults and environment only) and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
