package order

import (
	"context"
	"fmt"

	"github.com/trendora/platform/events"
	"github.com/trendora/platform/kafka"
	"github.com/trendora/platform/kafka/consumer"
	"github.com/trendora/platform/logger"
)

// Fulfillment consumes payment.successful and persists one order per
// checkout session. The session id is the idempotency key: a redelivered
// payment finds its order already present and is acknowledged silently.
type Fulfillment struct {
	store *Store
	log   *logger.Logger
}

// NewFulfillment creates the fulfillment handler.
func NewFulfillment(store *Store, log *logger.Logger) *Fulfillment {
	return &Fulfillment{
		store: store,
		log:   log.WithComponent("order.fulfillment"),
	}
}

// Bindings returns the topic bindings fulfillment consumes.
func (f *Fulfillment) Bindings() []consumer.Binding {
	return []consumer.Binding{
		{Topic: events.TopicPaymentSucceeded, Handler: kafka.JSONHandler(f.HandlePaymentSucceeded)},
	}
}

// HandlePaymentSucceeded creates the order for a completed checkout.
func (f *Fulfillment) HandlePaymentSucceeded(ctx context.Context, event events.PaymentSucceeded) error {
	if event.SessionID == "" {
		return fmt.Errorf("payment.successful event without session id")
	}

	order := &Order{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		Email:     event.Email,
		Amount:    event.Amount,
		Status:    event.Status,
		Products:  LineItems(event.Products),
	}

	created, err := f.store.CreateOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("create order for session %s: %w", event.SessionID, err)
	}
	if !created {
		f.log.Info("Duplicate payment delivery, order already exists", map[string]interface{}{
			logger.FieldSessionID: event.SessionID,
		})
		return nil
	}

	f.log.Info("Order created", map[string]interface{}{
		logger.FieldOrderID:   order.ID,
		logger.FieldSessionID: event.SessionID,
		logger.FieldUserID:    event.UserID,
		"amount":              event.Amount,
	})
	return nil
}
