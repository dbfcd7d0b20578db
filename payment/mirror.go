package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/trendora/platform/events"
	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/kafka/consumer"
	"github.com/trendora/platform/logger"
)

// Mirror keeps the provider catalog in sync with the product catalog by
// consuming product.created and product.deleted.
//
// Delivery is at-least-once, so both handlers are idempotent: a replayed
// create updates the existing provider product, and a delete for a product
// the provider never saw (or already dropped) is a no-op.
type Mirror struct {
	provider Provider
	log      *logger.Logger
}

// NewMirror creates the catalog mirror.
func NewMirror(provider Provider, log *logger.Logger) *Mirror {
	return &Mirror{
		provider: provider,
		log:      log.WithComponent("payment.mirror"),
	}
}

// Bindings returns the topic bindings the mirror consumes.
func (m *Mirror) Bindings() []consumer.Binding {
	return []consumer.Binding{
		{Topic: events.TopicProductCreated, Handler: kafka.JSONHandler(m.HandleProductCreated)},
		{Topic: events.TopicProductDeleted, Handler: kafka.JSONHandler(m.HandleProductDeleted)},
	}
}

// HandleProductCreated mirrors a new catalog product into the provider.
func (m *Mirror) HandleProductCreated(ctx context.Context, event events.ProductCreated) error {
	if event.ID == "" {
		return fmt.Errorf("product.created event without id")
	}

	product := ProviderProduct{ID: event.ID, Name: event.Name, Price: event.Price}

	err := m.provider.CreateProduct(ctx, product)
	if errors.Is(err, ErrProductExists) {
		// Redelivery or a catalog edit replayed from the beginning of the
		// topic. The latest payload wins.
		if err := m.provider.UpdateProduct(ctx, product); err != nil {
			return fmt.Errorf("update mirrored product %s: %w", event.ID, err)
		}
		m.log.Debug("Mirrored product updated", map[string]interface{}{
			logger.FieldProductID: event.ID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror product %s: %w", event.ID, err)
	}

	m.log.Info("Product mirrored into provider", map[string]interface{}{
		logger.FieldProductID: event.ID,
		"name":                event.Name,
	})
	return nil
}

// HandleProductDeleted removes a product from the provider catalog.
func (m *Mirror) HandleProductDeleted(ctx context.Context, event events.ProductDeleted) error {
	if event.ID == "" {
		return fmt.Errorf("product.deleted event without id")
	}

	err := m.provider.DeleteProduct(ctx, event.ID)
	if errors.Is(err, ErrProductNotFound) {
		m.log.Debug("Mirrored product already absent", map[string]interface{}{
			logger.FieldProductID: event.ID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete mirrored product %s: %w", event.ID, err)
	}

	m.log.Info("Product removed from provider", map[string]interface{}{
		logger.FieldProductID: event.ID,
	})
	return nil
}
