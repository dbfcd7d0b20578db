// The catalog service owns products and categories. Writes are admin-only
// and announce themselves on product.created / product.deleted so the
// payment provider's mirror stays in sync.
package main

import (
	"context"
	"fmt"
	"os"

	"gorm.io/driver/sqlite"

	"github.com/trendora/platform/app"
	"github.com/trendora/platform/auth"
	"github.com/trendora/platform/catalog"
	"github.com/trendora/platform/config"
	"github.com/trendora/platform/database"
	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/kafka/producer"
	"github.com/trendora/platform/observability"
	"github.com/trendora/platform/server"
	"github.com/trendora/platform/server/middleware"
)

const serviceName = "catalog-service"

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

	// Resolve the broker connection once per process; producer and event
	// component share the resolved config.
	kafkaCfg := kafka.NewClient(serviceName, cfg.Kafka, log)

	db, err := database.Open(ctx, sqlite.Open(cfg.Database.DSN), cfg.Database, log)
	if err != nil {
		log.Fatal("Database unavailable", map[string]interface{}{"error": err.Error()})
	}

	store, err := catalog.NewStore(db.Gorm)
	if err != nil {
		log.Fatal("Store setup failed", map[string]interface{}{"error": err.Error()})
	}

	// Lazy producer: the catalog serves HTTP even while the broker is down,
	// so the writer connects on first publish instead of at startup.
	prod, err := producer.NewLazy(kafkaCfg, log)
	if err != nil {
		log.Fatal("Producer setup failed", map[string]interface{}{"error": err.Error()})
	}
	svc := catalog.NewService(store, prod, log)

	events := kafka.NewComponent(kafkaCfg, log)
	events.SetProducer(prod)

	metrics := observability.NewComponent(cfg.Observability, a.Name, a.Version, cfg.Environment, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(log)
	srv.RegisterHealth(a.Name, a.Health)

	validator := auth.NewJWTValidator([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)
	catalog.NewHandler(svc).Register(srv.Engine(),
		middleware.RequireUser(validator),
		middleware.RequireRole("admin"),
	)

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
