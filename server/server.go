// Package server provides the shared HTTP surface of the platform services:
// a Gin engine behind an http.Server with the standard middleware stack and
// the component-aware health endpoint.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/trendora/platform/component"
	"github.com/trendora/platform/logger"
	"github.com/trendora/platform/server/endpoint"
	"github.com/trendora/platform/server/middleware"
)

// Server wraps a Gin engine and an http.Server with lifecycle management.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger
	serving    atomic.Bool
}

var _ component.Component = (*Server)(nil)

// New creates a Server from config. Middleware is applied separately via
// ApplyMiddleware so tests can mount bare engines.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// Engine returns the underlying Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine. Startup does not wait on any
// other component: a service with an unreachable broker still serves HTTP.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.serving.Store(true)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
		s.serving.Store(false)
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Name returns the component name.
func (s *Server) Name() string { return "server" }

// Health reports whether the server is accepting connections.
func (s *Server) Health(ctx context.Context) component.Health {
	if s.serving.Load() {
		return component.Health{Name: s.Name(), Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    s.Name(),
		Status:  component.StatusUnhealthy,
		Message: "not serving",
	}
}

// ApplyMiddleware applies the standard middleware stack: recovery,
// request-ID, CORS, and request logging. Auth is applied per route group.
func (s *Server) ApplyMiddleware(log *logger.Logger) {
	s.engine.Use(middleware.Recovery(log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.CORS(s.config.CORS))
	s.engine.Use(middleware.RequestLogger(log))
}

// RegisterHealth registers the standard /health endpoint.
func (s *Server) RegisterHealth(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
}
