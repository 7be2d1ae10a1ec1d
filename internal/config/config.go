// Package config provides YAML-based configuration loading for Questboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Questboard configuration, loaded from questboard.yaml.
type Config struct {
	Server         ServerConfig      `yaml:"server"`
	Database       DatabaseConfig    `yaml:"database"`
	Auth           AuthConfig        `yaml:"auth"`
	Notify         NotifyConfig      `yaml:"notify"`
	Challenges     []ChallengeConfig `yaml:"challenges"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" (default) or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// AuthConfig maps static bearer tokens to identities. Real deployments
// resolve identities externally; this map serves dev and tests.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens"`
}

// NotifyConfig configures optional push delivery adapters.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack push settings. Empty token disables the adapter.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord push settings. Empty token disables the adapter.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// ChallengeConfig defines one system-seeded daily challenge template.
type ChallengeConfig struct {
	Key         string                  `yaml:"key"`
	Title       string                  `yaml:"title"`
	Detail      string                  `yaml:"detail"`
	Icon        string                  `yaml:"icon"`
	RewardType  string                  `yaml:"reward_type"`
	RewardValue int                     `yaml:"reward_value"`
	Subtasks    []ChallengeSubtaskConfig `yaml:"subtasks"`
}

// ChallengeSubtaskConfig defines one subtask of a challenge template.
type ChallengeSubtaskConfig struct {
	Title string `yaml:"title"`
	Total int    `yaml:"total"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "questboard.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "questboard"
		}
	}
	for i := range c.Challenges {
		if c.Challenges[i].RewardValue == 0 {
			c.Challenges[i].RewardValue = 1
		}
		for j := range c.Challenges[i].Subtasks {
			if c.Challenges[i].Subtasks[j].Total == 0 {
				c.Challenges[i].Subtasks[j].Total = 1
			}
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	for i, ch := range c.Challenges {
		if ch.Key == "" {
			errs = append(errs, fmt.Sprintf("challenges[%d].key is required", i))
		}
		if ch.Title == "" {
			errs = append(errs, fmt.Sprintf("challenges[%d].title is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
