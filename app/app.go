// Package app runs a platform service: it wires the component registry to a
// uniform start/signal-wait/stop lifecycle so every service entrypoint looks
// the same.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendora/platform/component"
	"github.com/trendora/platform/config"
	"github.com/trendora/platform/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App is a running service: a validated config, a logger, and a set of
// lifecycle-managed components.
type App[C config.Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Log        *logger.Logger

	gracefulTimeout time.Duration
}

// New creates an App from a typed config. Defaults are applied and the
// config validated before anything starts.
func New[C config.Config](cfg C) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		Log:             logger.New(&base.Logging, base.Name),
		gracefulTimeout: defaultGracefulTimeout,
	}, nil
}

// RegisterComponent adds a component to the lifecycle.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// Run starts all components, waits for SIGINT/SIGTERM or context
// cancellation, then stops everything in reverse order.
func (a *App[C]) Run(ctx context.Context) error {
	a.Log.Info("Starting service", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	if err := a.Components.StartAll(ctx); err != nil {
		// Roll back whatever came up before the failure.
		stopCtx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()
		_ = a.Components.StopAll(stopCtx)
		return fmt.Errorf("startup failed: %w", err)
	}

	a.logHealth(ctx)
	a.Log.Info("Service ready, waiting for shutdown signal")
	a.waitForSignal(ctx)

	return a.stop()
}

// Health reports the health of all registered components.
func (a *App[C]) Health(ctx context.Context) []component.Health {
	return a.Components.HealthAll(ctx)
}

func (a *App[C]) logHealth(ctx context.Context) {
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		a.Log.Warn("Component not healthy at startup", map[string]interface{}{
			logger.FieldComponent: h.Name,
			"status":              string(h.Status),
			"message":             h.Message,
		})
	}
}

func (a *App[C]) waitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Log.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})
	case <-ctx.Done():
		a.Log.Info("Context canceled, shutting down")
	}
}

func (a *App[C]) stop() error {
	a.Log.Info("Shutting down", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	if err := a.Components.StopAll(ctx); err != nil {
		a.Log.Error("Shutdown completed with errors", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	a.Log.Info("Shutdown complete")
	return nil
}
