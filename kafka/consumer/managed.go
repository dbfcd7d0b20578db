package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/trendora/platform/logger"
)

// Managed wraps a Consumer with background lifecycle management: subscribe
// and consume run on a goroutine so service startup is never blocked on
// broker availability.
type Managed struct {
	consumer  *Consumer
	log       *logger.Logger
	isRunning bool
	cancelFn  context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
}

// NewManaged creates a managed wrapper around an existing consumer.
func NewManaged(c *Consumer, log *logger.Logger) *Managed {
	return &Managed{
		consumer: c,
		log:      log.WithComponent("kafka.managed_consumer"),
	}
}

// Start subscribes and begins consuming in a background goroutine. A
// subscribe failure after retries is logged loudly and leaves the service
// running without event delivery (degraded mode).
func (m *Managed) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return nil
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	m.cancelFn = cancel
	m.isRunning = true
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		defer func() {
			m.mu.Lock()
			m.isRunning = false
			m.mu.Unlock()
		}()

		if err := m.consumer.Subscribe(consumeCtx); err != nil {
			m.log.Error("Subscribe failed, event consumption disabled", map[string]interface{}{
				"group_id": m.consumer.GroupID(),
				"topics":   m.consumer.Topics(),
				"error":    err.Error(),
			})
			return
		}

		if err := m.consumer.Consume(consumeCtx); err != nil && err != context.Canceled {
			m.log.Error("Consume loop stopped with error", map[string]interface{}{
				"group_id": m.consumer.GroupID(),
				"error":    err.Error(),
			})
		}
	}()

	return nil
}

// Stop cancels the consume loop, waits for it to finish, and closes the
// underlying reader.
func (m *Managed) Stop() error {
	m.mu.Lock()
	if !m.isRunning && m.done == nil {
		m.mu.Unlock()
		return m.consumer.Close()
	}
	done := m.done
	if m.cancelFn != nil {
		m.cancelFn()
	}
	m.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			m.log.Warn("Consumer stop timed out", map[string]interface{}{
				"group_id": m.consumer.GroupID(),
			})
		}
	}

	return m.consumer.Close()
}

// IsRunning reports whether the consume loop is active.
func (m *Managed) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}
