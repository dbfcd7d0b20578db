package kafka

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/trendora/platform/kafka"

// Meter returns the event-layer meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(meterName)
}

// Metrics holds the event-layer instruments: publish attempts, deliveries,
// and handler failures, all attributed by topic. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	publishTotal   metric.Int64Counter
	consumeTotal   metric.Int64Counter
	handlerFailure metric.Int64Counter
}

// NewMetrics creates the event-layer instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	publishTotal, err := meter.Int64Counter("event.publish.total",
		metric.WithDescription("Events published, by topic and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating event.publish.total counter: %w", err)
	}

	consumeTotal, err := meter.Int64Counter("event.consume.total",
		metric.WithDescription("Events delivered to handlers, by topic"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating event.consume.total counter: %w", err)
	}

	handlerFailure, err := meter.Int64Counter("event.handler.failure.total",
		metric.WithDescription("Handler failures, by topic"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating event.handler.failure.total counter: %w", err)
	}

	return &Metrics{
		publishTotal:   publishTotal,
		consumeTotal:   consumeTotal,
		handlerFailure: handlerFailure,
	}, nil
}

// RecordPublish records one publish attempt and its outcome.
func (m *Metrics) RecordPublish(ctx context.Context, topic string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.publishTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("status", status),
	))
}

// RecordDelivery records one delivered message and, when the handler
// returned an error, one handler failure.
func (m *Metrics) RecordDelivery(ctx context.Context, topic string, handlerErr error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	m.consumeTotal.Add(ctx, 1, attrs)
	if handlerErr != nil {
		m.handlerFailure.Add(ctx, 1, attrs)
	}
}

// WriterMetrics is a structured snapshot of producer statistics, logged at
// shutdown as a delivery summary.
type WriterMetrics struct {
	Writes   int64 `json:"writes"`
	Messages int64 `json:"messages"`
	Errors   int64 `json:"errors"`
	Retries  int64 `json:"retries"`
}

// CollectWriterMetrics extracts structured metrics from kafka.WriterStats.
func CollectWriterMetrics(stats kafkago.WriterStats) WriterMetrics {
	return WriterMetrics{
		Writes:   stats.Writes,
		Messages: stats.Messages,
		Errors:   stats.Errors,
		Retries:  stats.Retries,
	}
}
