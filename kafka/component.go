package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/trendora/platform/component"
	"github.com/trendora/platform/logger"
	"github.com/trendora/platform/resilience"
)

// ProducerCloser is satisfied by any producer that can be closed.
type ProducerCloser interface {
	Close() error
}

// ConsumerRunner is satisfied by a managed consumer.
type ConsumerRunner interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// Component is the per-process lifecycle object for the event layer. It owns
// the shared broker configuration, the producer and the consumers, and the
// "is the event layer connected" flag that drives degraded-mode serving.
//
// Start never fails the process: if the broker is unreachable after the
// bounded retries, the service keeps serving HTTP and reports the event
// layer as degraded.
type Component struct {
	cfg       Config
	log       *logger.Logger
	producer  ProducerCloser
	consumers []ConsumerRunner
	connected atomic.Bool
	mu        sync.Mutex
	running   bool
	cancelFn  context.CancelFunc
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the event-layer component from resolved configuration.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{
		cfg: cfg,
		log: log.WithComponent("kafka"),
	}
}

// SetProducer injects the process-wide producer. Must be called before Start.
func (c *Component) SetProducer(p ProducerCloser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// AddConsumer injects a managed consumer. Must be called before Start.
func (c *Component) AddConsumer(cr ConsumerRunner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, cr)
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Connected reports whether the broker was reachable at startup. Written
// once by the startup goroutine, read by request handlers and health checks.
func (c *Component) Connected() bool { return c.connected.Load() }

// Start connects to the broker with bounded exponential backoff on a
// background goroutine, then starts all injected consumers. HTTP serving
// proceeds independently of this.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelFn = cancel
	consumers := c.consumers
	c.mu.Unlock()

	go func() {
		if err := c.connect(runCtx); err != nil {
			c.log.Error("Event layer unavailable, serving in degraded mode", map[string]interface{}{
				"brokers": c.cfg.Brokers,
				"error":   err.Error(),
			})
			// Consumers are still started: their own subscribe retry and
			// the reader's reconnect handle a broker that comes up late.
		} else {
			c.connected.Store(true)
			c.log.Info("Event layer connected", map[string]interface{}{
				"brokers": c.cfg.Brokers,
			})
		}

		for _, cr := range consumers {
			if err := cr.Start(runCtx); err != nil {
				c.log.Error("Consumer failed to start", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}()

	return nil
}

// connect pings the broker with the platform retry policy. Exhausting the
// retries yields resilience.ErrMaxRetriesExceeded.
func (c *Component) connect(ctx context.Context) error {
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("Broker connect failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"max":     retryCfg.MaxAttempts,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})
	}

	return resilience.RetryFunc(ctx, retryCfg, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, ParseDuration(c.cfg.DialTimeout))
		defer cancel()
		return Ping(pingCtx, &c.cfg)
	})
}

// Stop shuts down consumers first, then the producer.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	if c.cancelFn != nil {
		c.cancelFn()
	}

	var firstErr error
	for _, cr := range c.consumers {
		if err := cr.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.producer != nil {
		if sp, ok := c.producer.(interface{ Stats() kafkago.WriterStats }); ok {
			m := CollectWriterMetrics(sp.Stats())
			c.log.Info("Producer delivery summary", map[string]interface{}{
				"writes":   m.Writes,
				"messages": m.Messages,
				"errors":   m.Errors,
				"retries":  m.Retries,
			})
		}
		if err := c.producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return fmt.Errorf("kafka shutdown: %w", firstErr)
	}
	return nil
}

// Health reports healthy when the broker was reachable, degraded otherwise.
// A degraded event layer never fails the service's health endpoint; catalog
// and payment writes signal degraded delivery instead of refusing requests.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.Connected() {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusDegraded,
		Message: "broker unreachable, event delivery degraded",
	}
}
