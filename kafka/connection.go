package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/trendora/platform/logger"
)

// CreateTransport builds a kafka.Transport for producers, configured with the
// platform connection timeouts.
func CreateTransport(cfg *Config) *kafka.Transport {
	return &kafka.Transport{
		DialTimeout: ParseDuration(cfg.DialTimeout),
		MetadataTTL: ParseDuration(cfg.MetadataTTL),
		ClientID:    cfg.ClientID,
	}
}

// CreateDialer builds a kafka.Dialer for consumers and metadata probes.
func CreateDialer(cfg *Config) *kafka.Dialer {
	return &kafka.Dialer{
		Timeout:   ParseDuration(cfg.DialTimeout),
		DualStack: true,
		ClientID:  cfg.ClientID,
	}
}

// NewClient builds a connection config for the named service and logs the
// resolved broker list once. Retries are not applied here; connect and
// subscribe operations own the retry policy.
func NewClient(serviceName string, cfg Config, log *logger.Logger) Config {
	cfg.ClientID = serviceName
	cfg.ApplyDefaults()

	log.WithComponent("kafka").Info("Resolved brokers", map[string]interface{}{
		"brokers":   cfg.Brokers,
		"client_id": cfg.ClientID,
	})

	return cfg
}

// Ping dials the first reachable broker and asks for cluster metadata,
// verifying the event log is reachable. Used by connect-with-retry at startup.
func Ping(ctx context.Context, cfg *Config) error {
	dialer := CreateDialer(cfg)

	var lastErr error
	for _, broker := range cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no reachable broker in %v: %w", cfg.Brokers, lastErr)
}

// WarnLogger returns a kafka-go logger that forwards broker-library
// diagnostics at warn level. Routing only the error/warn loggers keeps the
// library's verbose per-fetch diagnostics out of the service logs.
func WarnLogger(log *logger.Logger, component string) kafka.LoggerFunc {
	cl := log.WithComponent(component)
	return func(msg string, args ...interface{}) {
		cl.Warn(fmt.Sprintf(msg, args...))
	}
}

// ErrorLogger returns a kafka-go logger that forwards broker-library errors.
func ErrorLogger(log *logger.Logger, component string) kafka.LoggerFunc {
	cl := log.WithComponent(component)
	return func(msg string, args ...interface{}) {
		cl.Error(fmt.Sprintf(msg, args...))
	}
}
