// The payment service mirrors the catalog into the payment provider,
// creates checkout sessions, and turns verified provider webhooks into
// payment.successful events.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trendora/platform/app"
	"github.com/trendora/platform/auth"
	"github.com/trendora/platform/config"
	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/kafka/consumer"
	"github.com/trendora/platform/kafka/producer"
	"github.com/trendora/platform/observability"
	"github.com/trendora/platform/payment"
	"github.com/trendora/platform/server"
	"github.com/trendora/platform/server/middleware"
)

const serviceName = "payment-service"

type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config             `yaml:"server" mapstructure:"server"`
	Kafka         kafka.Config              `yaml:"kafka" mapstructure:"kafka"`
	Auth          authConfig                `yaml:"auth" mapstructure:"auth"`
	Provider      providerConfig            `yaml:"provider" mapstructure:"provider"`
	Webhook       payment.WebhookConfig     `yaml:"webhook" mapstructure:"webhook"`
	Checkout      payment.CheckoutConfig    `yaml:"checkout" mapstructure:"checkout"`
	Observability observability.MeterConfig `yaml:"observability" mapstructure:"observability"`
}

type authConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
}

type providerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

func (c *appConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
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
	if err := c.Kafka.Validate(); err != nil {
		return err
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret is required")
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

	provider, err := payment.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	if err != nil {
		log.Fatal("Provider client setup failed", map[string]interface{}{"error": err.Error()})
	}

	// Webhook publishing is synchronous and must surface failures, so the
	// producer is lazy but its errors propagate to the webhook response.
	// Resolve the broker connection once per process; producer, consumer,
	// and event component share the resolved config.
	kafkaCfg := kafka.NewClient(serviceName, cfg.Kafka, log)

	prod, err := producer.NewLazy(kafkaCfg, log)
	if err != nil {
		log.Fatal("Producer setup failed", map[string]interface{}{"error": err.Error()})
	}

	mirror := payment.NewMirror(provider, log)
	mirrorConsumer, err := consumer.New(kafkaCfg, kafkaCfg.GroupID, mirror.Bindings(), log)
	if err != nil {
		log.Fatal("Consumer setup failed", map[string]interface{}{"error": err.Error()})
	}

	events := kafka.NewComponent(kafkaCfg, log)
	events.SetProducer(prod)
	events.AddConsumer(consumer.NewManaged(mirrorConsumer, log))

	metrics := observability.NewComponent(cfg.Observability, a.Name, a.Version, cfg.Environment, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(log)
	srv.RegisterHealth(a.Name, a.Health)

	webhook, err := payment.NewWebhook(cfg.Webhook, prod, log)
	if err != nil {
		log.Fatal("Webhook setup failed", map[string]interface{}{"error": err.Error()})
	}
	webhook.Register(srv.Engine())

	validator := auth.NewJWTValidator([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)
	payment.NewCheckoutHandler(cfg.Checkout, provider).Register(srv.Engine(),
		middleware.RequireUser(validator),
	)

	if err := a.RegisterComponent(metrics); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.RegisterComponent(events); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.RegisterComponent(srv); err != nil {
		log.Fatal("Component registration failed", map[string]interface{}{"error": err.Error()})
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatal("Service exited with error", map[string]interface{}{"error": err.Error()})
	}
}
