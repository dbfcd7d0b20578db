package kafka

import (
	"context"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMeter returns a Metrics instance backed by a manual reader so tests
// can collect and inspect recorded datapoints.
func newTestMeter(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

// counterSum collects current metrics and sums the datapoints of the named
// counter that carry all of the given attributes.
func counterSum(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != name {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, metric.Data)
			}
			for _, dp := range sum.DataPoints {
				matched := true
				for _, want := range attrs {
					if got, ok := dp.Attributes.Value(want.Key); !ok || got != want.Value {
						matched = false
						break
					}
				}
				if matched {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestMetrics_RecordPublishByStatus(t *testing.T) {
	m, reader := newTestMeter(t)
	ctx := context.Background()

	m.RecordPublish(ctx, "product.created", nil)
	m.RecordPublish(ctx, "product.created", nil)
	m.RecordPublish(ctx, "payment.successful", errors.New("broker down"))

	ok := counterSum(t, reader, "event.publish.total", attribute.String("status", "ok"))
	if ok != 2 {
		t.Errorf("ok publishes = %d, want 2", ok)
	}
	failed := counterSum(t, reader, "event.publish.total", attribute.String("status", "error"))
	if failed != 1 {
		t.Errorf("failed publishes = %d, want 1", failed)
	}
	byTopic := counterSum(t, reader, "event.publish.total", attribute.String("topic", "product.created"))
	if byTopic != 2 {
		t.Errorf("product.created publishes = %d, want 2", byTopic)
	}
}

func TestMetrics_RecordDeliveryCountsFailures(t *testing.T) {
	m, reader := newTestMeter(t)
	ctx := context.Background()

	m.RecordDelivery(ctx, "payment.successful", nil)
	m.RecordDelivery(ctx, "payment.successful", errors.New("decode failed"))
	m.RecordDelivery(ctx, "product.deleted", nil)

	if got := counterSum(t, reader, "event.consume.total"); got != 3 {
		t.Errorf("deliveries = %d, want 3", got)
	}
	failures := counterSum(t, reader, "event.handler.failure.total", attribute.String("topic", "payment.successful"))
	if failures != 1 {
		t.Errorf("handler failures = %d, want 1", failures)
	}
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.RecordPublish(context.Background(), "product.created", nil)
	m.RecordDelivery(context.Background(), "product.created", errors.New("x"))
}

func TestCollectWriterMetrics(t *testing.T) {
	stats := kafkago.WriterStats{Writes: 7, Messages: 9, Errors: 2, Retries: 1}

	got := CollectWriterMetrics(stats)
	if got.Writes != 7 || got.Messages != 9 || got.Errors != 2 || got.Retries != 1 {
		t.Errorf("CollectWriterMetrics() = %+v", got)
	}
}
