package kafka

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultBrokers are the local development listeners used when no override
// is supplied. They match the compose file's external broker ports.
var DefaultBrokers = []string{"localhost:9094", "localhost:9095", "localhost:9096"}

// Config holds broker connection and behavior configuration.
type Config struct {
	// Brokers is the list of broker addresses. Empty means resolve from the
	// KAFKA_BROKERS environment variable, falling back to DefaultBrokers.
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`

	// GroupID is the consumer group identifier, stable per service.
	GroupID string `yaml:"group_id" mapstructure:"group_id"`

	// ClientID identifies the connecting service in broker logs.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`

	// Producer settings
	BatchTimeout string `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequiredAcks int    `yaml:"required_acks" mapstructure:"required_acks"`

	// Consumer settings
	SessionTimeout    string `yaml:"session_timeout" mapstructure:"session_timeout"`
	HeartbeatInterval string `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	RebalanceTimeout  string `yaml:"rebalance_timeout" mapstructure:"rebalance_timeout"`

	// Connection settings
	DialTimeout    string `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	RequestTimeout string `yaml:"request_timeout" mapstructure:"request_timeout"`
	MetadataTTL    string `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// ResolveBrokers returns the configured broker list: explicit config first,
// then the comma-separated KAFKA_BROKERS override, then the local defaults.
func (c *Config) ResolveBrokers() []string {
	if len(c.Brokers) > 0 {
		return c.Brokers
	}
	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		parts := strings.Split(env, ",")
		brokers := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				brokers = append(brokers, p)
			}
		}
		if len(brokers) > 0 {
			return brokers
		}
	}
	return DefaultBrokers
}

// ApplyDefaults sets sensible defaults for zero-valued fields and pins the
// resolved broker list.
func (c *Config) ApplyDefaults() {
	c.Brokers = c.ResolveBrokers()
	if c.BatchTimeout == "" {
		c.BatchTimeout = "100ms"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "30s"
	}
	if c.RequiredAcks <= 0 {
		c.RequiredAcks = -1 // all replicas
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = "30s"
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "3s"
	}
	if c.RebalanceTimeout == "" {
		c.RebalanceTimeout = "30s"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "30s"
	}
	if c.MetadataTTL == "" {
		c.MetadataTTL = "6s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	for _, d := range []struct {
		name, val string
	}{
		{"batch_timeout", c.BatchTimeout},
		{"write_timeout", c.WriteTimeout},
		{"session_timeout", c.SessionTimeout},
		{"heartbeat_interval", c.HeartbeatInterval},
		{"rebalance_timeout", c.RebalanceTimeout},
		{"dial_timeout", c.DialTimeout},
		{"request_timeout", c.RequestTimeout},
		{"metadata_ttl", c.MetadataTTL},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	return nil
}

// ParseDuration parses a duration string, returning zero on empty input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
