package kafka

import (
	"testing"
)

func TestNewClient_NamesAndResolves(t *testing.T) {
	cfg := NewClient("catalog-service", Config{}, testLogger())

	if cfg.ClientID != "catalog-service" {
		t.Errorf("ClientID = %q, want catalog-service", cfg.ClientID)
	}
	if len(cfg.Brokers) != len(DefaultBrokers) {
		t.Fatalf("Brokers = %v, want local defaults", cfg.Brokers)
	}
	for i, b := range DefaultBrokers {
		if cfg.Brokers[i] != b {
			t.Errorf("Brokers[%d] = %q, want %q", i, cfg.Brokers[i], b)
		}
	}
}

func TestNewClient_KeepsExplicitBrokers(t *testing.T) {
	cfg := NewClient("order-service", Config{Brokers: []string{"broker-1:9092"}}, testLogger())

	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "broker-1:9092" {
		t.Errorf("Brokers = %v, want the explicit list", cfg.Brokers)
	}
}
