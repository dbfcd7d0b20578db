package kafka

import (
	"reflect"
	"testing"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Brokers: []string{"broker-1:9092"}}
	cfg.ApplyDefaults()

	if cfg.BatchTimeout != "100ms" {
		t.Errorf("BatchTimeout = %q, want 100ms", cfg.BatchTimeout)
	}
	if cfg.WriteTimeout != "30s" {
		t.Errorf("WriteTimeout = %q, want 30s", cfg.WriteTimeout)
	}
	if cfg.RequiredAcks != -1 {
		t.Errorf("RequiredAcks = %d, want -1", cfg.RequiredAcks)
	}
	if cfg.DialTimeout != "10s" {
		t.Errorf("DialTimeout = %q, want 10s", cfg.DialTimeout)
	}
	if cfg.RequestTimeout != "30s" {
		t.Errorf("RequestTimeout = %q, want 30s", cfg.RequestTimeout)
	}
	if cfg.SessionTimeout != "30s" {
		t.Errorf("SessionTimeout = %q, want 30s", cfg.SessionTimeout)
	}
	if cfg.HeartbeatInterval != "3s" {
		t.Errorf("HeartbeatInterval = %q, want 3s", cfg.HeartbeatInterval)
	}
}

func TestConfig_ResolveBrokers_Explicit(t *testing.T) {
	cfg := Config{Brokers: []string{"broker-1:9092", "broker-2:9092"}}
	got := cfg.ResolveBrokers()
	want := []string{"broker-1:9092", "broker-2:9092"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveBrokers() = %v, want %v", got, want)
	}
}

func TestConfig_ResolveBrokers_EnvOverride(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-broker-1:9092, kafka-broker-2:9092,kafka-broker-3:9092")

	cfg := Config{}
	got := cfg.ResolveBrokers()
	want := []string{"kafka-broker-1:9092", "kafka-broker-2:9092", "kafka-broker-3:9092"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveBrokers() = %v, want %v", got, want)
	}
}

func TestConfig_ResolveBrokers_LocalDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Config{}
	got := cfg.ResolveBrokers()
	if !reflect.DeepEqual(got, DefaultBrokers) {
		t.Errorf("ResolveBrokers() = %v, want local defaults %v", got, DefaultBrokers)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"no brokers", func(c *Config) { c.Brokers = nil }, true},
		{"bad dial timeout", func(c *Config) { c.DialTimeout = "soon" }, true},
		{"bad session timeout", func(c *Config) { c.SessionTimeout = "-" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Brokers: []string{"localhost:9092"}}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
