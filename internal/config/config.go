package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type FeedConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	BearerToken string `mapstructure:"bearer_token"`
	Handle      string `mapstructure:"handle"`
	SelfID      int64  `mapstructure:"self_id"`
	Proxy       string `mapstructure:"proxy"`
}

type ModelConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type PersonaConfig struct {
	Name   string   `mapstructure:"name"`
	Prompt string   `mapstructure:"prompt"`
	Styles []string `mapstructure:"styles"`
	Themes []string `mapstructure:"themes"`
}

type PollConfig struct {
	MinMinutes int `mapstructure:"min_minutes"`
	MaxMinutes int `mapstructure:"max_minutes"`
	Fanout     int `mapstructure:"fanout"`
}

type ComposeConfig struct {
	MinMinutes   int      `mapstructure:"min_minutes"`
	MaxMinutes   int      `mapstructure:"max_minutes"`
	InspireFeeds []string `mapstructure:"inspire_feeds"`
}

type Config struct {
	Feed    FeedConfig    `mapstructure:"feed"`
	Model   ModelConfig   `mapstructure:"model"`
	Persona PersonaConfig `mapstructure:"persona"`
	Poll    PollConfig    `mapstructure:"poll"`
	Compose ComposeConfig `mapstructure:"compose"`
}

// Load reads config.yaml from the working directory (missing file is fine)
// and merges FEED_AGENT_* environment variables over it.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("FEED_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// setDefaults registers every key so AutomaticEnv can see env-only values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.bearer_token", "")
	v.SetDefault("feed.handle", "")
	v.SetDefault("feed.self_id", 0)
	v.SetDefault("feed.proxy", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.model", "")
	v.SetDefault("persona.name", "")
	v.SetDefault("persona.prompt", "")
	v.SetDefault("persona.styles", []string{})
	v.SetDefault("persona.themes", []string{})
	v.SetDefault("poll.min_minutes", 0)
	v.SetDefault("poll.max_minutes", 0)
	v.SetDefault("poll.fanout", 0)
	v.SetDefault("compose.min_minutes", 0)
	v.SetDefault("compose.max_minutes", 0)
	v.SetDefault("compose.inspire_feeds", []string{})
}

func (c Config) withDefaults() Config {
	out := c
	if out.Poll.MinMinutes <= 0 {
		out.Poll.MinMinutes = int(DefaultPollMinInterval / time.Minute)
	}
	if out.Poll.MaxMinutes < out.Poll.MinMinutes {
		out.Poll.MaxMinutes = int(DefaultPollMaxInterval / time.Minute)
	}
	if out.Poll.MaxMinutes < out.Poll.MinMinutes {
		out.Poll.MaxMinutes = out.Poll.MinMinutes
	}
	if out.Poll.Fanout <= 0 {
		out.Poll.Fanout = DefaultMentionFanout
	}
	if out.Compose.MinMinutes <= 0 {
		out.Compose.MinMinutes = int(DefaultComposeMinInterval / time.Minute)
	}
	if out.Compose.MaxMinutes < out.Compose.MinMinutes {
		out.Compose.MaxMinutes = int(DefaultComposeMaxInterval / time.Minute)
	}
	if out.Compose.MaxMinutes < out.Compose.MinMinutes {
		out.Compose.MaxMinutes = out.Compose.MinMinutes
	}
	return out
}

// Validate checks the fields the agent cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Feed.BaseURL) == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if strings.TrimSpace(c.Feed.Handle) == "" {
		return fmt.Errorf("feed.handle is required")
	}
	if c.Feed.SelfID <= 0 {
		return fmt.Errorf("feed.self_id is required")
	}
	if strings.TrimSpace(c.Model.APIKey) == "" {
		return fmt.Errorf("model.api_key is required")
	}
	return nil
}

func (c Config) PollInterval() (min, max time.Duration) {
	return time.Duration(c.Poll.MinMinutes) * time.Minute, time.Duration(c.Poll.MaxMinutes) * time.Minute
}

func (c Config) ComposeInterval() (min, max time.Duration) {
	return time.Duration(c.Compose.MinMinutes) * time.Minute, time.Duration(c.Compose.MaxMinutes) * time.Minute
}
