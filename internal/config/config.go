// Package config loads the CLI's settings from environment variables, a
// YAML file, or defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/samsaffron/mdstream"
)

// Provider names accepted in config.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the CLI configuration.
type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`

	// Style is a glamour standard style; empty means detect from the
	// terminal background.
	Style string `mapstructure:"style"`

	LinkPlaceholder      string `mapstructure:"link_placeholder"`
	TailWindow           int    `mapstructure:"tail_window"`
	ReferenceDefinitions bool   `mapstructure:"reference_definitions"`
}

// Dir returns the config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mdstream")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mdstream")
}

// Load reads the config file if present and fills in defaults. A missing
// file is not an error; a malformed one is.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())

	v.SetEnvPrefix("MDSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", ProviderAnthropic)
	v.SetDefault("style", "")
	v.SetDefault("link_placeholder", mdstream.DefaultLinkPlaceholder)
	v.SetDefault("tail_window", mdstream.DefaultTailWindow)
	v.SetDefault("reference_definitions", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Model == "" {
		switch cfg.Provider {
		case ProviderOpenAI:
			cfg.Model = "gpt-5.2"
		default:
			cfg.Model = "claude-sonnet-4-5"
		}
	}

	switch cfg.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: %s, %s)", cfg.Provider, ProviderAnthropic, ProviderOpenAI)
	}

	return &cfg, nil
}

// StreamOptions translates config into splitter options.
func (c *Config) StreamOptions() []mdstream.Option {
	opts := []mdstream.Option{
		mdstream.WithLinkPlaceholder(c.LinkPlaceholder),
		mdstream.WithTailWindow(c.TailWindow),
	}
	if c.ReferenceDefinitions {
		opts = append(opts, mdstream.WithReferenceDefinitions(mdstream.RefDefInvalidate))
	}
	return opts
}
