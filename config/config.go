// Package config loads and validates the AuraLink backend configuration.
// Configuration comes from a JSON file with environment overrides for the
// values that typically differ per deployment (broker address, API key).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/IT22277190/AuraLink-group55/errors"
)

// Config represents the complete application configuration
type Config struct {
	Broker     BrokerConfig     `json:"broker"`
	Enrichment EnrichmentConfig `json:"enrichment"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Viewer     ViewerConfig     `json:"viewer"`
	Gateway    GatewayConfig    `json:"gateway"`
	Email      EmailConfig      `json:"email"`
}

// BrokerConfig defines the MQTT broker connection
type BrokerConfig struct {
	URL      string `json:"url"` // e.g. "tcp://test.mosquitto.org:1883"
	ClientID string `json:"client_id"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// EnrichmentConfig defines the generative-text backend
type EnrichmentConfig struct {
	BaseURL     string  `json:"base_url,omitempty"` // empty = OpenAI cloud
	APIKey      string  `json:"api_key,omitempty"`  // env AURALINK_OPENAI_API_KEY overrides
	Model       string  `json:"model,omitempty"`    // default gpt-3.5-turbo
	CallTimeout string  `json:"call_timeout,omitempty"`
	RateLimit   float64 `json:"rate_limit,omitempty"` // requests/sec across all calls, 0 = unlimited
}

// PipelineConfig bounds concurrent message processing
type PipelineConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`
}

// ViewerConfig defines the WebSocket fan-out server
type ViewerConfig struct {
	Port int    `json:"port,omitempty"`
	Path string `json:"path,omitempty"`
}

// GatewayConfig defines the synchronous HTTP ingress
type GatewayConfig struct {
	Enabled bool `json:"enabled,omitempty"`
	Port    int  `json:"port,omitempty"`
}

// EmailConfig defines the mock email source
type EmailConfig struct {
	PoolFile string `json:"pool_file,omitempty"` // optional YAML pool, empty = built-in samples
}

// DefaultConfig returns a configuration with working defaults for every
// value that has one. Broker URL and API key still have to be provided.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:      "tcp://test.mosquitto.org:1883",
			ClientID: "auralink-backend-service",
		},
		Enrichment: EnrichmentConfig{
			Model:       "gpt-3.5-turbo",
			CallTimeout: "30s",
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Viewer: ViewerConfig{
			Port: 8081,
			Path: "/ws",
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Port:    8000,
		},
	}
}

// Load reads the configuration file, applies defaults for absent values and
// environment overrides for deployment secrets, then validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapFatal(err, "Config", "Load", "parse config file")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides deployment-specific values from the environment
func (c *Config) applyEnv() {
	if v := os.Getenv("AURALINK_BROKER_URL"); v != "" {
		c.Broker.URL = v
	}
	if v := os.Getenv("AURALINK_OPENAI_API_KEY"); v != "" {
		c.Enrichment.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Enrichment.APIKey == "" {
		c.Enrichment.APIKey = v
	}
	if v := os.Getenv("AURALINK_OPENAI_BASE_URL"); v != "" {
		c.Enrichment.BaseURL = v
	}
}

// Validate checks the configuration for fatal problems
func (c *Config) Validate() error {
	if c.Broker.URL == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate", "broker.url is required")
	}
	if c.Broker.ClientID == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate", "broker.client_id is required")
	}
	if c.Enrichment.APIKey == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate",
			"enrichment.api_key is required (or set AURALINK_OPENAI_API_KEY)")
	}
	if c.Enrichment.CallTimeout != "" {
		if _, err := time.ParseDuration(c.Enrichment.CallTimeout); err != nil {
			return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("enrichment.call_timeout %q is not a duration", c.Enrichment.CallTimeout))
		}
	}
	if c.Enrichment.RateLimit < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate", "enrichment.rate_limit must be >= 0")
	}
	if c.Pipeline.Workers < 1 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate", "pipeline.workers must be >= 1")
	}
	if c.Pipeline.QueueSize < 1 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate", "pipeline.queue_size must be >= 1")
	}
	if c.Viewer.Port < 1024 || c.Viewer.Port > 65535 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("viewer.port %d out of range 1024-65535", c.Viewer.Port))
	}
	if c.Gateway.Enabled && (c.Gateway.Port < 1024 || c.Gateway.Port > 65535) {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("gateway.port %d out of range 1024-65535", c.Gateway.Port))
	}
	return nil
}

// Timeout returns the parsed enrichment call timeout, defaulting to 30s
func (c EnrichmentConfig) Timeout() time.Duration {
	if c.CallTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
