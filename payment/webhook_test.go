package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/trendora/platform/errors"
	"github.com/trendora/platform/events"
)

const testSecret = "whsec_test"

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	now := time.Unix(1_712_000_000, 0)

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"valid", signPayload(payload, testSecret, now), false},
		{"valid within tolerance", signPayload(payload, testSecret, now.Add(-4*time.Minute)), false},
		{"missing header", "", true},
		{"wrong secret", signPayload(payload, "whsec_other", now), true},
		{"stale timestamp", signPayload(payload, testSecret, now.Add(-10*time.Minute)), true},
		{"future timestamp", signPayload(payload, testSecret, now.Add(10*time.Minute)), true},
		{"no timestamp", "v1=deadbeef", true},
		{"no v1", fmt.Sprintf("t=%d", now.Unix()), true},
		{"garbage", "not-a-signature", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(payload, tt.header, testSecret, 5*time.Minute, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifySignature_SecondV1Matches(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1_712_000_000, 0)

	valid := signPayload(payload, testSecret, now)
	_, sig, _ := strings.Cut(valid, "v1=")
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(), "00ff", sig)

	if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
		t.Errorf("VerifySignature with rotated keys: %v", err)
	}
}

type capturingPublisher struct {
	topic string
	key   string
	value interface{}
	err   error
}

func (p *capturingPublisher) SendJSON(_ context.Context, topic, key string, value interface{}) error {
	p.topic = topic
	p.key = key
	p.value = value
	return p.err
}

const completedSessionBody = `{
	"type": "checkout.session.completed",
	"data": {"object": {
		"id": "cs_test_1",
		"client_reference_id": "user_1",
		"customer_details": {"email": "jo@example.com"},
		"amount_total": 12999,
		"payment_status": "paid",
		"line_items": {"data": [
			{"description": "Air Max", "quantity": 2, "price": {"unit_amount": 6499}}
		]}
	}}
}`

func newWebhookRouter(t *testing.T, pub Publisher) (*gin.Engine, *Webhook) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wh, err := NewWebhook(WebhookConfig{Secret: testSecret}, pub, testLogger())
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	engine := gin.New()
	wh.Register(engine)
	return engine, wh
}

func postWebhook(engine *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhook_CompletedSessionPublishesEvent(t *testing.T) {
	pub := &capturingPublisher{}
	engine, _ := newWebhookRouter(t, pub)

	sig := signPayload([]byte(completedSessionBody), testSecret, time.Now())
	w := postWebhook(engine, completedSessionBody, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if pub.topic != events.TopicPaymentSucceeded {
		t.Fatalf("topic = %q, want %q", pub.topic, events.TopicPaymentSucceeded)
	}
	payload, ok := pub.value.(events.PaymentSucceeded)
	if !ok {
		t.Fatalf("payload type = %T", pub.value)
	}
	if payload.SessionID != "cs_test_1" || pub.key != "cs_test_1" {
		t.Errorf("session id = %q, key = %q", payload.SessionID, pub.key)
	}
	if payload.UserID != "user_1" || payload.Amount != 12999 {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Status != events.PaymentStatusSuccess {
		t.Errorf("status = %q, want success", payload.Status)
	}
	if payload.Email == nil || *payload.Email != "jo@example.com" {
		t.Errorf("email = %v", payload.Email)
	}
	if len(payload.Products) != 1 || payload.Products[0].Price != 6499 || payload.Products[0].Quantity != 2 {
		t.Errorf("products = %+v", payload.Products)
	}
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	pub := &capturingPublisher{}
	engine, _ := newWebhookRouter(t, pub)

	w := postWebhook(engine, completedSessionBody, "t=1,v1=deadbeef")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if pub.topic != "" {
		t.Error("event must not be published for an unverified webhook")
	}
}

func TestWebhook_PublishFailureAnswers500(t *testing.T) {
	pub := &capturingPublisher{err: apperrors.EventPublishFailed(events.TopicPaymentSucceeded)}
	engine, _ := newWebhookRouter(t, pub)

	sig := signPayload([]byte(completedSessionBody), testSecret, time.Now())
	w := postWebhook(engine, completedSessionBody, sig)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 so the provider retries", w.Code)
	}
}

func TestWebhook_UnhandledEventTypeAcknowledged(t *testing.T) {
	pub := &capturingPublisher{}
	engine, _ := newWebhookRouter(t, pub)

	body := `{"type":"invoice.paid","data":{"object":{}}}`
	sig := signPayload([]byte(body), testSecret, time.Now())
	w := postWebhook(engine, body, sig)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if pub.topic != "" {
		t.Error("no event should be published for unhandled types")
	}
}

func TestWebhook_UnpaidSessionMarkedFailed(t *testing.T) {
	pub := &capturingPublisher{}
	engine, _ := newWebhookRouter(t, pub)

	body := strings.Replace(completedSessionBody, `"paid"`, `"unpaid"`, 1)
	sig := signPayload([]byte(body), testSecret, time.Now())
	w := postWebhook(engine, body, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	payload := pub.value.(events.PaymentSucceeded)
	if payload.Status != events.PaymentStatusFailed {
		t.Errorf("status = %q, want failed", payload.Status)
	}
}

func TestNewWebhook_RequiresSecret(t *testing.T) {
	if _, err := NewWebhook(WebhookConfig{}, &capturingPublisher{}, testLogger()); err == nil {
		t.Error("expected error for empty secret")
	}
}
