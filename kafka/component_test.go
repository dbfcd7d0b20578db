package kafka

import (
	"context"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/trendora/platform/component"
	"github.com/trendora/platform/logger"
)

type fakeProducer struct {
	closed bool
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

// fakeStatsProducer additionally exposes writer statistics, like the real
// producer does.
type fakeStatsProducer struct {
	fakeProducer
	statsCalled bool
}

func (f *fakeStatsProducer) Stats() kafkago.WriterStats {
	f.statsCalled = true
	return kafkago.WriterStats{Writes: 3, Messages: 3}
}

type fakeConsumerRunner struct {
	started bool
	stopped bool
}

func (f *fakeConsumerRunner) Start(ctx context.Context) error {
	f.started = true
	return nil
}

func (f *fakeConsumerRunner) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeConsumerRunner) IsRunning() bool { return f.started && !f.stopped }

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json"}, "test")
}

func TestComponent_HealthDegradedBeforeConnect(t *testing.T) {
	cfg := Config{Brokers: []string{"localhost:9092"}}
	cfg.ApplyDefaults()
	c := NewComponent(cfg, testLogger())

	h := c.Health(context.Background())
	if h.Status != component.StatusDegraded {
		t.Errorf("Health before connect = %s, want degraded", h.Status)
	}
	if c.Connected() {
		t.Error("Connected() should be false before a successful connect")
	}
}

func TestComponent_StopClosesProducerAndConsumers(t *testing.T) {
	cfg := Config{Brokers: []string{"localhost:9092"}}
	cfg.ApplyDefaults()
	c := NewComponent(cfg, testLogger())

	fp := &fakeProducer{}
	fc := &fakeConsumerRunner{}
	c.SetProducer(fp)
	c.AddConsumer(fc)

	// Mark running without dialing a broker.
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !fp.closed {
		t.Error("producer was not closed")
	}
	if !fc.stopped {
		t.Error("consumer was not stopped")
	}
}

func TestComponent_StopLogsProducerStats(t *testing.T) {
	cfg := Config{Brokers: []string{"localhost:9092"}}
	cfg.ApplyDefaults()
	c := NewComponent(cfg, testLogger())

	fp := &fakeStatsProducer{}
	c.SetProducer(fp)

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !fp.statsCalled {
		t.Error("Stop did not collect producer stats")
	}
	if !fp.closed {
		t.Error("producer was not closed")
	}
}

func TestComponent_StopIdempotent(t *testing.T) {
	cfg := Config{Brokers: []string{"localhost:9092"}}
	cfg.ApplyDefaults()
	c := NewComponent(cfg, testLogger())

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() on never-started component error = %v", err)
	}
}
