// This file defines the configuration structure for rtmplex.
// It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultConfigPath is used when RTMPLEX_CONFIG is unset and no file exists
// there; a missing file is not an error, only a signal to use defaults.
const defaultConfigPath = "/etc/rtmplex/config.yaml"

// Config holds every tunable that is not part of the RTMP wire protocol.
// The RTMP listen port is deliberately not a field here: it is controlled
// exclusively by the PORT environment variable (spec.md §6), so the two
// can never disagree.
type Config struct {
	Admin  AdminConfig  `yaml:"admin"`
	Stream StreamConfig `yaml:"stream"`
	Log    LogConfig    `yaml:"log,omitempty"`
}

// AdminConfig configures the stats HTTP/websocket observability surface.
type AdminConfig struct {
	Port int `yaml:"port"` // Port for GET /stats and GET /stats/ws
}

// StreamConfig configures per-subscriber and per-message resource bounds.
type StreamConfig struct {
	SubscriberBufferCapacity uint32 `yaml:"subscriber_buffer_capacity"` // ring buffer slots per subscriber
	MaxMessageBytes          uint32 `yaml:"max_message_bytes"`          // spec.md §5 resource bound
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Verbose bool `yaml:"verbose,omitempty"`
}

// Path resolves the config file path: RTMPLEX_CONFIG if set, else the
// built-in default.
func Path() string {
	if p := os.Getenv("RTMPLEX_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads configuration from a YAML file at path. A missing file is not
// an error: rtmplex is meant to run with zero required setup, so defaults
// apply instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		cfg.setDefaults()
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Admin.Port == 0 {
		c.Admin.Port = 8080
	}
	if c.Stream.SubscriberBufferCapacity == 0 {
		c.Stream.SubscriberBufferCapacity = 256
	}
	if c.Stream.MaxMessageBytes == 0 {
		c.Stream.MaxMessageBytes = 16 * 1024 * 1024
	}
}
