// Package config loads pagesmith configuration from a YAML file with
// environment overrides. A .env/.env.local file is applied first so local
// development matches production env-var wiring.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagesmith/internal/errors"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GitHub    GitHubConfig    `yaml:"github"`
	Generator GeneratorConfig `yaml:"generator"`
	Queue     QueueConfig     `yaml:"queue"`
	Callback  CallbackConfig  `yaml:"callback"`
	NATS      NATSConfig      `yaml:"nats"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the ingress HTTP API.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	Secret string `yaml:"secret"` // SECRET_PASSWORD
}

// GitHubConfig configures the publish engine.
type GitHubConfig struct {
	Token   string `yaml:"token"` // GITHUB_ACCESS_TOKEN
	Owner   string `yaml:"owner"` // GITHUB_OWNER
	APIURL  string `yaml:"api_url,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// GeneratorConfig configures the content generator client.
type GeneratorConfig struct {
	APIKey  string `yaml:"api_key"`  // OPENAI_API_KEY
	BaseURL string `yaml:"base_url"` // OPENAI_BASE_URL
	Model   string `yaml:"model"`
}

// QueueConfig sizes the worker queue.
type QueueConfig struct {
	Workers int `yaml:"workers"`
	MaxSize int `yaml:"max_size"`
}

// CallbackConfig tunes the delivery backoff.
type CallbackConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// NATSConfig enables the optional NATS front door.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`     // NATS_URL
	Subject string `yaml:"subject"` // e.g. pagesmith.tasks
}

// EventsConfig configures the SQLite task event audit store.
type EventsConfig struct {
	Path string `yaml:"path"` // empty disables the store
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the config file (optional), applies .env files and environment
// overrides, fills defaults, and validates.
func Load(path string) (*Config, error) {
	// Missing .env files are fine; the environment may already be set.
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "invalid configuration file").
					WithContext("path", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "cannot read configuration file").
				WithContext("path", path)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on the file values. Env wins, to
// match how the original deployment is configured.
func (c *Config) applyEnv() {
	overlay := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	overlay(&c.Server.Secret, "SECRET_PASSWORD")
	overlay(&c.Server.Addr, "PAGESMITH_LISTEN_ADDR")
	overlay(&c.GitHub.Token, "GITHUB_ACCESS_TOKEN")
	overlay(&c.GitHub.Owner, "GITHUB_OWNER")
	overlay(&c.GitHub.APIURL, "GITHUB_API_URL")
	overlay(&c.Generator.APIKey, "OPENAI_API_KEY")
	overlay(&c.Generator.BaseURL, "OPENAI_BASE_URL")
	overlay(&c.Generator.Model, "OPENAI_MODEL")
	overlay(&c.NATS.URL, "NATS_URL")
}

// applyDefaults fills zero values with working defaults.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gpt-4o"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.MaxSize <= 0 {
		c.Queue.MaxSize = 100
	}
	if c.Callback.MaxAttempts <= 0 {
		c.Callback.MaxAttempts = 10
	}
	if c.Callback.InitialDelay <= 0 {
		c.Callback.InitialDelay = time.Second
	}
	if c.Callback.MaxDelay <= 0 {
		c.Callback.MaxDelay = 60 * time.Second
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "pagesmith.tasks"
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Secret == "" {
		return errors.ConfigRequired("server.secret (SECRET_PASSWORD)")
	}
	if c.GitHub.Token == "" {
		return errors.ConfigRequired("github.token (GITHUB_ACCESS_TOKEN)")
	}
	if c.GitHub.Owner == "" {
		return errors.ConfigRequired("github.owner (GITHUB_OWNER)")
	}
	if c.Generator.APIKey == "" {
		return errors.ConfigRequired("generator.api_key (OPENAI_API_KEY)")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.ConfigRequired("nats.url (NATS_URL)")
	}
	if c.Callback.InitialDelay > c.Callback.MaxDelay {
		return fmt.Errorf("callback initial delay %s exceeds max delay %s", c.Callback.InitialDelay, c.Callback.MaxDelay)
	}
	return nil
}
