package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/logger"
	"github.com/trendora/platform/resilience"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json"}, "test")
}

// fakeReader feeds a fixed sequence of messages, then blocks until the
// context is cancelled.
type fakeReader struct {
	mu     sync.Mutex
	msgs   []kafkago.Message
	closed bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		msg := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestConsumer(t *testing.T, reader messageReader, bindings []Binding) *Consumer {
	t.Helper()

	handlers := make(map[string]kafka.MessageHandler, len(bindings))
	topics := make([]string, 0, len(bindings))
	for _, b := range bindings {
		handlers[b.Topic] = b.Handler
		topics = append(topics, b.Topic)
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	return &Consumer{
		reader:   reader,
		groupID:  "test-group",
		topics:   topics,
		handlers: handlers,
		log:      testLogger().WithComponent("kafka.consumer"),
		retryCfg: retryCfg,
	}
}

func runConsumeUntil(t *testing.T, c *Consumer, done func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finished := make(chan struct{})
	go func() {
		_ = c.Consume(ctx)
		close(finished)
	}()

	deadline := time.After(2 * time.Second)
	for !done() {
		select {
		case <-deadline:
			t.Fatal("condition not reached before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Consume did not stop after cancel")
	}
}

// counterSum collects current metrics and sums the named counter across all
// datapoints.
func counterSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestConsume_RecordsDeliveryMetrics(t *testing.T) {
	metricReader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	metrics, err := kafka.NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	reader := &fakeReader{msgs: []kafkago.Message{
		{Topic: "payment.successful", Value: []byte(`{"ok":true}`)},
		{Topic: "payment.successful", Value: []byte(`{"ok":false}`)},
	}}

	var mu sync.Mutex
	handled := 0
	c := newTestConsumer(t, reader, []Binding{{
		Topic: "payment.successful",
		Handler: func(ctx context.Context, msg kafka.Message) error {
			mu.Lock()
			handled++
			n := handled
			mu.Unlock()
			if n == 2 {
				return errors.New("handler blew up")
			}
			return nil
		},
	}})
	c.metrics = metrics

	runConsumeUntil(t, c, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return handled == 2
	})

	if got := counterSum(t, metricReader, "event.consume.total"); got != 2 {
		t.Errorf("deliveries recorded = %d, want 2", got)
	}
	if got := counterSum(t, metricReader, "event.handler.failure.total"); got != 1 {
		t.Errorf("handler failures recorded = %d, want 1", got)
	}
}

func TestNew_RejectsInvalidBindings(t *testing.T) {
	cfg := kafka.Config{Brokers: []string{"localhost:9092"}}
	noop := func(ctx context.Context, msg kafka.Message) error { return nil }

	if _, err := New(cfg, "", []Binding{{Topic: "t", Handler: noop}}, testLogger()); err == nil {
		t.Error("expected error for empty group id")
	}
	if _, err := New(cfg, "g", nil, testLogger()); err == nil {
		t.Error("expected error for empty bindings")
	}
	if _, err := New(cfg, "g", []Binding{{Topic: "t"}}, testLogger()); err == nil {
		t.Error("expected error for nil handler")
	}
	if _, err := New(cfg, "g", []Binding{
		{Topic: "t", Handler: noop},
		{Topic: "t", Handler: noop},
	}, testLogger()); err == nil {
		t.Error("expected error for duplicate topic binding")
	}
}

func TestConsume_DispatchesByTopic(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]string{}
	record := func(topic string) kafka.MessageHandler {
		return func(ctx context.Context, msg kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			seen[topic] = append(seen[topic], string(msg.Value))
			return nil
		}
	}

	reader := &fakeReader{msgs: []kafkago.Message{
		{Topic: "product.created", Value: []byte("a")},
		{Topic: "product.deleted", Value: []byte("b")},
		{Topic: "product.created", Value: []byte("c")},
	}}

	c := newTestConsumer(t, reader, []Binding{
		{Topic: "product.created", Handler: record("product.created")},
		{Topic: "product.deleted", Handler: record("product.deleted")},
	})

	runConsumeUntil(t, c, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen["product.created"]) == 2 && len(seen["product.deleted"]) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if seen["product.created"][0] != "a" || seen["product.created"][1] != "c" {
		t.Errorf("product.created order = %v, want [a c]", seen["product.created"])
	}
}

func TestConsume_HandlerErrorDoesNotStopLoop(t *testing.T) {
	var mu sync.Mutex
	var processed []string

	failing := func(ctx context.Context, msg kafka.Message) error {
		mu.Lock()
		processed = append(processed, "failed:"+string(msg.Value))
		mu.Unlock()
		return errors.New("downstream create failed")
	}
	succeeding := func(ctx context.Context, msg kafka.Message) error {
		mu.Lock()
		processed = append(processed, "ok:"+string(msg.Value))
		mu.Unlock()
		return nil
	}

	reader := &fakeReader{msgs: []kafkago.Message{
		{Topic: "product.created", Value: []byte("m1")},
		{Topic: "payment.successful", Value: []byte("m2")},
		{Topic: "product.created", Value: []byte("m3")},
	}}

	c := newTestConsumer(t, reader, []Binding{
		{Topic: "product.created", Handler: failing},
		{Topic: "payment.successful", Handler: succeeding},
	})

	runConsumeUntil(t, c, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"failed:m1", "ok:m2", "failed:m3"}
	for i, w := range want {
		if processed[i] != w {
			t.Errorf("processed[%d] = %q, want %q", i, processed[i], w)
		}
	}
}

func TestConsume_DecodeErrorIsIsolated(t *testing.T) {
	type productPayload struct {
		ID string `json:"id"`
	}

	var mu sync.Mutex
	var decoded []string
	handler := kafka.JSONHandler(func(ctx context.Context, p productPayload) error {
		mu.Lock()
		decoded = append(decoded, p.ID)
		mu.Unlock()
		return nil
	})

	reader := &fakeReader{msgs: []kafkago.Message{
		{Topic: "product.created", Value: []byte("not json")},
		{Topic: "product.created", Value: []byte(`{"id":"42"}`)},
	}}

	c := newTestConsumer(t, reader, []Binding{
		{Topic: "product.created", Handler: handler},
	})

	runConsumeUntil(t, c, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(decoded) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if decoded[0] != "42" {
		t.Errorf("decoded = %v, want [42]", decoded)
	}
}

func TestSubscribe_RetriesTopicNotReady(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{}, []Binding{
		{Topic: "payment.successful", Handler: func(ctx context.Context, msg kafka.Message) error { return nil }},
	})

	calls := 0
	c.probe = func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("read partitions: %w", kafkago.UnknownTopicOrPartition)
		}
		return nil
	}

	if err := c.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("probe calls = %d, want 3", calls)
	}
}

func TestSubscribe_ExhaustsOnPersistentTopicNotReady(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{}, []Binding{
		{Topic: "payment.successful", Handler: func(ctx context.Context, msg kafka.Message) error { return nil }},
	})

	calls := 0
	c.probe = func(ctx context.Context) error {
		calls++
		return kafkago.UnknownTopicOrPartition
	}

	err := c.Subscribe(context.Background())
	if err == nil {
		t.Fatal("expected Subscribe to fail")
	}
	if calls != c.retryCfg.MaxAttempts {
		t.Errorf("probe calls = %d, want %d", calls, c.retryCfg.MaxAttempts)
	}
	if !errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		t.Errorf("expected ErrMaxRetriesExceeded, got %v", err)
	}
}

func TestSubscribe_OtherErrorFailsImmediately(t *testing.T) {
	c := newTestConsumer(t, &fakeReader{}, []Binding{
		{Topic: "payment.successful", Handler: func(ctx context.Context, msg kafka.Message) error { return nil }},
	})

	calls := 0
	c.probe = func(ctx context.Context) error {
		calls++
		return io.ErrUnexpectedEOF
	}

	err := c.Subscribe(context.Background())
	if err == nil {
		t.Fatal("expected Subscribe to fail")
	}
	if calls != 1 {
		t.Errorf("probe calls = %d, want 1 (no retry for non-topic errors)", calls)
	}
	if errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		t.Error("non-topic subscribe error must not be reported as exhaustion")
	}
}

func TestClose_ClosesReader(t *testing.T) {
	reader := &fakeReader{}
	c := newTestConsumer(t, reader, []Binding{
		{Topic: "t", Handler: func(ctx context.Context, msg kafka.Message) error { return nil }},
	})

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !reader.closed {
		t.Error("underlying reader was not closed")
	}
}
