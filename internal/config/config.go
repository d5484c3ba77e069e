// Package config loads the relay/agent configuration from a JSON5 file with
// environment overrides. Secrets (Postgres DSN, broker URL, model API key)
// come from the environment only and are never written to the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Config is the root configuration shared by the relay and agent commands.
type Config struct {
	Relay Relay `json:"relay"`
	Bus   Bus   `json:"bus"`
	// Database holds persistence settings. DSN is env-only.
	Database Database `json:"database,omitempty"`
	Model    Model    `json:"model,omitempty"`
}

type Relay struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	// RateLimitRPM limits inbound messages per connection; <= 0 disables.
	RateLimitRPM int `json:"rate_limit_rpm,omitempty"`
}

// Bus selects the pub/sub transport. Mode "memory" runs the agent in-process
// on a channel-backed bus; mode "rabbit" uses the broker at URL.
type Bus struct {
	Mode     string `json:"mode"`
	Exchange string `json:"exchange,omitempty"`
	URL      string `json:"-"` // env WORKHUB_AMQP_URL only
}

// Database: DSN empty means the in-memory store (development and tests).
type Database struct {
	PostgresDSN string `json:"-"` // env WORKHUB_POSTGRES_DSN only
}

// Model configures the optional LLM used by the secondary classifier and
// response generation. No API key means the pipeline runs rule-based only.
type Model struct {
	Provider       string `json:"provider,omitempty"`
	APIBase        string `json:"api_base,omitempty"`
	Model          string `json:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	APIKey         string `json:"-"` // env WORKHUB_MODEL_API_KEY only
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Relay: Relay{
			Host:         "0.0.0.0",
			Port:         18080,
			RateLimitRPM: 60,
		},
		Bus: Bus{
			Mode:     "memory",
			Exchange: "workhub",
		},
		Model: Model{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 10,
		},
	}
}

// Load reads the config file (JSON5, comments and trailing commas allowed)
// and applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WORKHUB_POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("WORKHUB_AMQP_URL"); v != "" {
		cfg.Bus.URL = v
		if cfg.Bus.Mode == "" || cfg.Bus.Mode == "memory" {
			cfg.Bus.Mode = "rabbit"
		}
	}
	if v := os.Getenv("WORKHUB_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("WORKHUB_RELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Relay.Port = port
		}
	}
}

// Validate rejects combinations that cannot run.
func (c *Config) Validate() error {
	switch c.Bus.Mode {
	case "memory":
	case "rabbit":
		if c.Bus.URL == "" {
			return fmt.Errorf("bus mode is rabbit but WORKHUB_AMQP_URL is not set")
		}
	default:
		return fmt.Errorf("unknown bus mode %q", c.Bus.Mode)
	}
	if c.Relay.Port <= 0 || c.Relay.Port > 65535 {
		return fmt.Errorf("invalid relay port %d", c.Relay.Port)
	}
	return nil
}
