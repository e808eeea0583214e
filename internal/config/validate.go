// This file validates configuration values and returns descriptive errors.

package config

import "fmt"

// Validate checks that all configuration values are within acceptable
// ranges. Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("admin config: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}
	return nil
}

// Validate checks admin-server configuration values.
func (a *AdminConfig) Validate() error {
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", a.Port)
	}
	return nil
}

// Validate checks stream resource-bound configuration values.
func (s *StreamConfig) Validate() error {
	if s.SubscriberBufferCapacity == 0 {
		return fmt.Errorf("subscriber_buffer_capacity must be greater than 0")
	}
	if s.MaxMessageBytes == 0 {
		return fmt.Errorf("max_message_bytes must be greater than 0")
	}
	return nil
}
