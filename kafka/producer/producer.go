// Package producer publishes platform events to the durable log.
//
// Publishing is deliberately retry-free: a failed write propagates to the
// caller, which decides whether the triggering operation fails (payment
// path) or continues degraded (catalog path).
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/trendora/platform/errors"
	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/logger"
)

// Producer wraps a kafka-go Writer with platform configuration, logging,
// and publish metrics.
type Producer struct {
	writer  *kafkago.Writer
	cfg     kafka.Config
	log     *logger.Logger
	metrics *kafka.Metrics
	mu      sync.RWMutex
	closed  bool
}

// New creates a producer with an eagerly initialized writer.
func New(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	p, err := NewLazy(cfg, log)
	if err != nil {
		return nil, err
	}
	p.initWriter()
	return p, nil
}

// NewLazy creates a producer whose writer is initialized on first use,
// for services where the broker may not be reachable at startup.
func NewLazy(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	metrics, err := kafka.NewMetrics(kafka.Meter())
	if err != nil {
		return nil, fmt.Errorf("kafka producer metrics: %w", err)
	}
	return &Producer{
		cfg:     cfg,
		log:     log.WithComponent("kafka.producer"),
		metrics: metrics,
	}, nil
}

// initWriter creates the underlying kafka.Writer (idempotent, thread-safe).
func (p *Producer) initWriter() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer != nil {
		return
	}

	p.writer = &kafkago.Writer{
		Addr:      kafkago.TCP(p.cfg.Brokers...),
		Transport: kafka.CreateTransport(&p.cfg),
		Balancer:  &kafkago.LeastBytes{},
		// The broker auto-creates topics on first publish; subscribers
		// handle the creation race on their side.
		AllowAutoTopicCreation: true,
		BatchTimeout:           kafka.ParseDuration(p.cfg.BatchTimeout),
		WriteTimeout:           kafka.ParseDuration(p.cfg.WriteTimeout),
		RequiredAcks:           kafkago.RequiredAcks(p.cfg.RequiredAcks),
		ErrorLogger:            kafka.ErrorLogger(p.log, "kafka.writer"),
	}

	p.log.Info("Producer initialized", map[string]interface{}{
		"client_id": p.cfg.ClientID,
	})
}

// SendJSON marshals value as JSON and publishes it to the given topic. The
// key selects the partition, keeping per-entity events ordered. There is no
// publish retry; failures surface to the caller as a PUBLISH_FAILED error.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return p.Send(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}

// Send publishes a single prepared message.
func (p *Producer) Send(ctx context.Context, msg kafkago.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		err := apperrors.EventPublishFailed(msg.Topic).WithCause(fmt.Errorf("producer is closed"))
		p.metrics.RecordPublish(ctx, msg.Topic, err)
		return err
	}
	writer := p.writer
	p.mu.RUnlock()

	if writer == nil {
		p.initWriter()
		p.mu.RLock()
		writer = p.writer
		p.mu.RUnlock()
	}

	err := writer.WriteMessages(ctx, msg)
	p.metrics.RecordPublish(ctx, msg.Topic, err)
	if err != nil {
		return apperrors.EventPublishFailed(msg.Topic).WithCause(err)
	}
	return nil
}

// Stats returns writer statistics.
func (p *Producer) Stats() kafkago.WriterStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.writer != nil {
		return p.writer.Stats()
	}
	return kafkago.WriterStats{}
}

// Close shuts down the producer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Producer closing")
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
