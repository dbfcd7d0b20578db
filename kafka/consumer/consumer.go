// Package consumer runs a service's consumer group over the durable log.
//
// Each service joins one group, binds a handler per topic, and processes the
// union of its topics through a single reader. Delivery is at-least-once;
// handlers tolerate duplicates.
package consumer

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/logger"
	"github.com/trendora/platform/resilience"
)

// Binding associates a topic with the handler invoked for its messages.
// Bindings are registered once at construction and never mutated afterwards.
type Binding struct {
	Topic   string
	Handler kafka.MessageHandler
}

// messageReader is the slice of kafka-go's Reader the consume loop needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// Consumer joins a consumer group and dispatches messages to topic handlers.
type Consumer struct {
	reader   messageReader
	cfg      kafka.Config
	groupID  string
	topics   []string
	handlers map[string]kafka.MessageHandler
	log      *logger.Logger
	metrics  *kafka.Metrics
	failures int

	// probe checks that all bound topics exist; replaced in tests.
	probe func(ctx context.Context) error
	// retryCfg is the subscribe retry policy, shortened in tests.
	retryCfg resilience.RetryConfig
}

// New creates a consumer for the given group and topic bindings.
func New(cfg kafka.Config, groupID string, bindings []Binding, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if groupID == "" {
		return nil, fmt.Errorf("consumer group id is required")
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("at least one topic binding is required")
	}

	handlers := make(map[string]kafka.MessageHandler, len(bindings))
	topics := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if b.Topic == "" || b.Handler == nil {
			return nil, fmt.Errorf("binding requires both topic and handler")
		}
		if _, dup := handlers[b.Topic]; dup {
			return nil, fmt.Errorf("duplicate binding for topic %s", b.Topic)
		}
		handlers[b.Topic] = b.Handler
		topics = append(topics, b.Topic)
	}

	clog := log.WithComponent("kafka.consumer")

	metrics, err := kafka.NewMetrics(kafka.Meter())
	if err != nil {
		return nil, fmt.Errorf("kafka consumer metrics: %w", err)
	}

	// StartOffset FirstOffset: a group seen for the first time replays the
	// full topic history so new deployments catch up from the beginning.
	// Established groups resume from their committed offsets.
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           groupID,
		GroupTopics:       topics,
		Dialer:            kafka.CreateDialer(&cfg),
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    kafka.ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  kafka.ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger:       kafka.ErrorLogger(log, "kafka.reader"),
	})

	c := &Consumer{
		reader:   reader,
		cfg:      cfg,
		groupID:  groupID,
		topics:   topics,
		handlers: handlers,
		log:      clog,
		metrics:  metrics,
	}
	c.probe = c.probeTopics
	c.retryCfg = resilience.DefaultRetryConfig()

	clog.Info("Consumer initialized", map[string]interface{}{
		"group_id": groupID,
		"topics":   topics,
	})

	return c, nil
}

// Subscribe waits until every bound topic exists on the broker. The broker
// auto-creates topics on first publish, so a fresh deployment can race its
// own producers; only the not-yet-created case is retried with backoff, any
// other failure propagates immediately.
func (c *Consumer) Subscribe(ctx context.Context) error {
	retryCfg := c.retryCfg
	retryCfg.RetryIf = kafka.IsTopicNotReady
	retryCfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("Topics not ready, retrying subscribe", map[string]interface{}{
			"attempt": attempt,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})
	}

	if err := resilience.RetryFunc(ctx, retryCfg, func() error {
		return c.probe(ctx)
	}); err != nil {
		return fmt.Errorf("subscribe %v: %w", c.topics, err)
	}

	c.log.Info("Subscribed", map[string]interface{}{
		"group_id": c.groupID,
		"topics":   c.topics,
	})
	return nil
}

// probeTopics asks any reachable broker for partition metadata of all bound
// topics. Missing topics surface as kafka.UnknownTopicOrPartition.
func (c *Consumer) probeTopics(ctx context.Context) error {
	dialer := kafka.CreateDialer(&c.cfg)

	var lastErr error
	for _, broker := range c.cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.ReadPartitions(c.topics...)
		_ = conn.Close()
		if err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("no reachable broker in %v: %w", c.cfg.Brokers, lastErr)
}

// Consume reads messages until ctx is cancelled, dispatching each to its
// topic handler. A handler failure (including a payload decode failure) is
// logged and does not stop the loop; the message is effectively dropped.
func (c *Consumer) Consume(ctx context.Context) error {
	c.log.Info("Starting consume loop", map[string]interface{}{
		"group_id": c.groupID,
		"topics":   c.topics,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if waitErr := c.handleReadFailure(ctx, err); waitErr != nil {
				return waitErr
			}
			continue
		}

		c.failures = 0
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafkago.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		c.log.Warn("No handler bound for topic", map[string]interface{}{
			logger.FieldTopic: msg.Topic,
		})
		return
	}

	err := handler(ctx, kafka.FromKafkaMessage(msg))
	c.metrics.RecordDelivery(ctx, msg.Topic, err)
	if err != nil {
		c.log.Error("Message processing failed", map[string]interface{}{
			"error":            err.Error(),
			logger.FieldTopic:  msg.Topic,
			logger.FieldOffset: msg.Offset,
			"partition":        msg.Partition,
		})
	}
}

// handleReadFailure logs a read error and sleeps with linear backoff so a
// flapping broker is not hammered. Repeated identical failures stop logging
// after the first few.
func (c *Consumer) handleReadFailure(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Broker read error", map[string]interface{}{
			"error":    err.Error(),
			"failures": c.failures,
			"group_id": c.groupID,
		})
	}

	backoff := time.Duration(c.failures) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// Topics returns the bound topic names.
func (c *Consumer) Topics() []string { return c.topics }

// GroupID returns the consumer group id.
func (c *Consumer) GroupID() string { return c.groupID }

// Close shuts down the underlying reader.
func (c *Consumer) Close() error {
	c.log.Info("Consumer closing", map[string]interface{}{
		"group_id": c.groupID,
	})
	return c.reader.Close()
}
