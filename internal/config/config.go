package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/gavel/internal/instance"
)

// DefaultExchange is the AMQP topic exchange used when events.exchange is
// not set.
const DefaultExchange = "gavel_events"

// GavelConfig represents the top-level gavel.yml configuration.
type GavelConfig struct {
	Version  string        `yaml:"version"`
	Instance string        `yaml:"instance"`
	RedisURL string        `yaml:"redis_url"`
	Events   *EventsConfig `yaml:"events,omitempty"`
}

// EventsConfig enables the AMQP event bridge: committed market events are
// republished to a topic exchange with the event kind as routing key.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange,omitempty"`
}

// Validate performs strict validation on the configuration and applies
// defaults for optional fields.
func (c *GavelConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := instance.ValidateName(c.Instance); err != nil {
		return fmt.Errorf("invalid instance: %w", err)
	}

	if c.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}

	if c.Events != nil {
		if c.Events.AMQPURL == "" {
			return fmt.Errorf("events.amqp_url is required when events is set")
		}
		if c.Events.Exchange == "" {
			c.Events.Exchange = DefaultExchange
		}
	}

	return nil
}

// Load reads and validates gavel.yml from the specified path.
func Load(path string) (*GavelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config GavelConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
