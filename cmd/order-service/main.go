// The order service consumes payment.successful, persists exactly one order
// per checkout session, and serves order history to users and admins.
package main

import (
	"context"
	"fmt"
	"os"

	"gorm.io/driver/sqlite"

	"github.com/trendora/platform/app"
	"github.com/trendora/platform/auth"
	"github.com/trendora/platform/config"
	"github.com/trendora/platform/database"
	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/kafka/consumer"
	"github.com/trendora/platform/observability"
	"github.com/trendora/platform/order"
	"github.com/trendora/platform/server"
	"github.com/trendora/platform/server/middleware"

	"github.com/gin-gonic/gin"
)

const serviceName = "order-service"

type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config             `yaml:"server" mapstructure:"server"`
	Database      database.Config           `yaml:"database" mapstructure:"database"`
	Kafka         kafka.Config              `yaml:"kafka" mapstructure:"kafka"`
	Auth          authConfig                `yaml:"auth" mapstructure:"auth"`
	Observability observability.MeterConfig `yaml:"observability" mapstructure:"observability"`
}

type authConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
}

func (c *appConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = serviceName
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = serviceName
	}
	c.Kafka.ApplyDefaults()
}

func (c *appConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return err
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	return nil
}

func main() {
	cfg := &appConfig{}
	if err := config.Load(serviceName, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
	log := a.Log

	ctx := context.Background()

	// Resolve the broker connection once per process; consumer and event
	// component share the resolved config.
	kafkaCfg := kafka.NewClient(serviceName, cfg.Kafka, log)

	db, err := database.Open(ctx, sqlite.Open(cfg.Database.DSN), cfg.Database, log)
	if err != nil {
		log.Fatal("Database unavailable", map[string]interface{}{"error": err.Error()})
	}

	store, err := order.NewStore(db.Gorm)
	if err != nil {
		log.Fatal("Store setup failed", map[string]interface{}{"error": err.Error()})
	}

	fulfillment := order.NewFulfillment(store, log)
	fulfillmentConsumer, err := consumer.New(kafkaCfg, kafkaCfg.GroupID, fulfillment.Bindings(), log)
	if err != nil {
		log.Fatal("Consumer setup failed", map[string]interface{}{"error": err.Error()})
	}

	events := kafka.NewComponent(kafkaCfg, log)
	events.AddConsumer(consumer.NewManaged(fulfillmentConsumer, log))

	metrics := observability.NewComponent(cfg.Observability, a.Name, a.Version, cfg.Environment, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(log)
	srv.RegisterHealth(a.Name, a.Health)

	validator := auth.NewJWTValidator([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)
	user := []gin.HandlerFunc{middleware.RequireUser(validator)}
	admin := []gin.HandlerFunc{middleware.RequireUser(validator), middleware.RequireRole("admin")}
	order.NewHandler(store).Register(srv.Engine(), user, admin)

	if err := a.RegisterComponent(metrics); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.RegisterComponent(database.NewComponent(db)); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.RegisterComponent(events); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.RegisterComponent(srv); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}

	if err := a.Run(ctx); err != nil {
		log.Fatal("Service exited with error", map[string]interface{}{"error": err.Error()})
	}
}
