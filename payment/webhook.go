package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/trendora/platform/errors"
	"github.com/trendora/platform/events"
	"github.com/trendora/platform/logger"
)

// SignatureHeader is the webhook signature header name.
const SignatureHeader = "Stripe-Signature"

const defaultTolerance = 5 * time.Minute

// eventCheckoutCompleted is the only webhook event type the platform acts on.
const eventCheckoutCompleted = "checkout.session.completed"

// Publisher is the slice of the event producer the webhook needs.
type Publisher interface {
	SendJSON(ctx context.Context, topic, key string, value interface{}) error
}

// WebhookConfig configures webhook verification.
type WebhookConfig struct {
	// Secret is the shared HMAC secret issued by the provider.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Tolerance bounds the age of a signed payload to blunt replay.
	// Defaults to 5 minutes.
	Tolerance time.Duration `yaml:"tolerance" mapstructure:"tolerance"`
}

// webhookEvent is the envelope the provider posts.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object checkoutSession `json:"object"`
	} `json:"data"`
}

// checkoutSession is the provider's completed-session object, with line
// items expanded inline.
type checkoutSession struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerDetails   *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	AmountTotal   int64  `json:"amount_total"`
	PaymentStatus string `json:"payment_status"`
	LineItems     struct {
		Data []struct {
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
			Price       *struct {
				UnitAmount int64 `json:"unit_amount"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

// Webhook receives provider callbacks, verifies their signature, and turns
// completed checkouts into payment.successful events.
//
// Publishing here is synchronous and failure is fatal to the request: the
// provider retries rejected webhooks, so answering 500 is what keeps the
// payment from being lost while the broker is down.
type Webhook struct {
	cfg       WebhookConfig
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

// NewWebhook creates the webhook endpoint handler.
func NewWebhook(cfg WebhookConfig, publisher Publisher, log *logger.Logger) (*Webhook, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = defaultTolerance
	}
	return &Webhook{
		cfg:       cfg,
		publisher: publisher,
		log:       log.WithComponent("payment.webhook"),
		now:       time.Now,
	}, nil
}

// Register mounts the webhook routes.
func (w *Webhook) Register(r gin.IRouter) {
	r.POST("/webhooks/provider", w.handle)
}

func (w *Webhook) handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, apperrors.InvalidInput("Unable to read webhook body"))
		return
	}

	if err := VerifySignature(body, c.GetHeader(SignatureHeader), w.cfg.Secret, w.cfg.Tolerance, w.now()); err != nil {
		w.log.Warn("Webhook verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(c, apperrors.Unauthorized("Webhook verification failed!"))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(c, apperrors.InvalidInput("Invalid webhook payload"))
		return
	}

	if event.Type != eventCheckoutCompleted {
		// Unhandled event types are acknowledged so the provider stops
		// resending them.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	payload := buildPaymentEvent(event.Data.Object)
	if err := w.publisher.SendJSON(c.Request.Context(), events.TopicPaymentSucceeded, payload.SessionID, payload); err != nil {
		w.log.Error("Payment event publish failed, rejecting webhook for retry", map[string]interface{}{
			logger.FieldSessionID: payload.SessionID,
			"error":               err.Error(),
		})
		respondError(c, err)
		return
	}

	w.log.Info("Checkout completed, payment event published", map[string]interface{}{
		logger.FieldSessionID: payload.SessionID,
		logger.FieldUserID:    payload.UserID,
		"amount":              payload.Amount,
	})
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func buildPaymentEvent(session checkoutSession) events.PaymentSucceeded {
	status := events.PaymentStatusFailed
	if session.PaymentStatus == "paid" {
		status = events.PaymentStatusSuccess
	}

	var email *string
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = &session.CustomerDetails.Email
	}

	products := make([]events.LineItem, 0, len(session.LineItems.Data))
	for _, item := range session.LineItems.Data {
		line := events.LineItem{
			Name:     item.Description,
			Quantity: item.Quantity,
		}
		if item.Price != nil {
			line.Price = item.Price.UnitAmount
		}
		products = append(products, line)
	}

	return events.PaymentSucceeded{
		SessionID: session.ID,
		UserID:    session.ClientReferenceID,
		Email:     email,
		Amount:    session.AmountTotal,
		Status:    status,
		Products:  products,
	}
}

// VerifySignature checks a provider signature header against the payload.
// The header carries a unix timestamp and one or more v1 signatures:
//
//	t=1712000000,v1=5257a86...,v1=891f0a...
//
// The signed message is "<t>.<payload>" and the signature is its
// HMAC-SHA256 under the shared secret. The timestamp must be within
// tolerance of now.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	var ts int64
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed timestamp in signature header")
			}
			ts = parsed
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if ts == 0 {
		return fmt.Errorf("signature header missing timestamp")
	}
	if len(signatures) == 0 {
		return fmt.Errorf("signature header missing v1 signature")
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("no matching v1 signature")
}
