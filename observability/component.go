package observability

import (
	"context"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/trendora/platform/component"
	"github.com/trendora/platform/logger"
)

// Component manages the meter provider lifecycle. When export is disabled it
// starts as a no-op and stays healthy; the event-layer counters still record
// against the global no-op provider.
type Component struct {
	cfg         MeterConfig
	service     string
	version     string
	environment string
	log         *logger.Logger

	mu       sync.Mutex
	provider *sdkmetric.MeterProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the metrics lifecycle component.
func NewComponent(cfg MeterConfig, service, version, environment string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		service:     service,
		version:     version,
		environment: environment,
		log:         log.WithComponent("metrics"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "metrics" }

// Start initializes the global meter provider when an endpoint is configured.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled() {
		c.log.Info("Metric export disabled, no endpoint configured")
		return nil
	}

	provider, err := InitMeter(ctx, c.cfg, c.service, c.version, c.environment)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.provider = provider
	c.mu.Unlock()

	c.log.Info("Metric export started", map[string]interface{}{
		"endpoint": c.cfg.Endpoint,
		"interval": c.cfg.Interval.String(),
	})
	return nil
}

// Stop flushes and shuts down the meter provider.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	provider := c.provider
	c.provider = nil
	c.mu.Unlock()

	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// Health reports healthy; a disabled exporter is a valid configuration.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled() {
		h.Message = "metric export disabled"
	}
	return h
}
