// Package events defines the topics and payload schemas exchanged between
// the catalog, payment, and order services. The payload is the sole carrier
// of saga state: handlers never need side-channel lookups to process one.
package events

// Topic names. Each topic is an independently ordered stream; there is no
// ordering guarantee across topics.
const (
	// TopicProductCreated carries catalog products to mirror into the
	// payment provider.
	TopicProductCreated = "product.created"
	// TopicProductDeleted carries catalog product removals.
	TopicProductDeleted = "product.deleted"
	// TopicPaymentSucceeded carries completed checkouts to the order service.
	TopicPaymentSucceeded = "payment.successful"
)

// Payment statuses carried on PaymentSucceeded events.
const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// ProductCreated is the payload of TopicProductCreated.
type ProductCreated struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ProductDeleted is the payload of TopicProductDeleted. Only the id is
// required to remove the mirrored product.
type ProductDeleted struct {
	ID string `json:"id"`
}

// LineItem is one purchased product on a completed checkout.
type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	// Price is in minor units (cents).
	Price int64 `json:"price"`
}

// PaymentSucceeded is the payload of TopicPaymentSucceeded. SessionID is the
// checkout session identifier and the idempotency key for order creation:
// delivery is at-least-once, so the same logical payment may arrive twice.
type PaymentSucceeded struct {
	SessionID string     `json:"sessionId"`
	UserID    string     `json:"userId"`
	Email     *string    `json:"email"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	Products  []LineItem `json:"products"`
}
