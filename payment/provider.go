// Package payment integrates the platform with the external payment
// provider: it mirrors the catalog into the provider, exposes checkout
// sessions, and turns provider webhooks into payment.successful events.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/trendora/platform/httpclient"
)

// Provider error sentinels. Implementations map their transport-level
// failures onto these so callers can branch without knowing the transport.
var (
	// ErrProductExists is returned by CreateProduct when the product id is
	// already present in the provider catalog.
	ErrProductExists = errors.New("provider: product already exists")
	// ErrProductNotFound is returned by DeleteProduct and UpdateProduct when
	// the product id is unknown to the provider.
	ErrProductNotFound = errors.New("provider: product not found")
	// ErrSessionNotFound is returned by GetCheckoutSession for an unknown id.
	ErrSessionNotFound = errors.New("provider: checkout session not found")
)

// ProviderProduct is the catalog entry mirrored into the provider.
type ProviderProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CheckoutItem is one purchasable line in a new checkout session.
type CheckoutItem struct {
	Name     string  `json:"name" binding:"required"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price" binding:"gt=0"`
	Quantity int     `json:"quantity" binding:"gt=0"`
}

// CheckoutSession is the provider's view of a checkout session.
type CheckoutSession struct {
	ID            string `json:"id"`
	ClientSecret  string `json:"clientSecret"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
}

// SessionRequest creates a new checkout session for a user.
type SessionRequest struct {
	// ClientReferenceID ties the session back to the platform user.
	ClientReferenceID string         `json:"clientReferenceId"`
	Items             []CheckoutItem `json:"items"`
	ReturnURL         string         `json:"returnUrl"`
}

// Provider is the payment provider surface the service depends on.
type Provider interface {
	CreateProduct(ctx context.Context, p ProviderProduct) error
	UpdateProduct(ctx context.Context, p ProviderProduct) error
	DeleteProduct(ctx context.Context, id string) error
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
}

// HTTPProvider talks to the provider's REST API.
type HTTPProvider struct {
	client *httpclient.Client
}

// NewHTTPProvider creates a provider client. The API key travels as a bearer
// token; transient failures are retried with the standard backoff schedule.
func NewHTTPProvider(baseURL, apiKey string) (*HTTPProvider, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL:     baseURL,
		BearerToken: apiKey,
		Retry:       httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("provider client: %w", err)
	}
	return &HTTPProvider{client: client}, nil
}

// CreateProduct registers a product in the provider catalog.
func (p *HTTPProvider) CreateProduct(ctx context.Context, product ProviderProduct) error {
	_, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/products",
		Body:   product,
	})
	if httpclient.IsConflict(err) {
		return ErrProductExists
	}
	return err
}

// UpdateProduct replaces the provider's copy of a product.
func (p *HTTPProvider) UpdateProduct(ctx context.Context, product ProviderProduct) error {
	_, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPut,
		Path:   "/v1/products/" + product.ID,
		Body:   product,
	})
	if httpclient.IsNotFound(err) {
		return ErrProductNotFound
	}
	return err
}

// DeleteProduct removes a product from the provider catalog.
func (p *HTTPProvider) DeleteProduct(ctx context.Context, id string) error {
	_, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		Path:   "/v1/products/" + id,
	})
	if httpclient.IsNotFound(err) {
		return ErrProductNotFound
	}
	return err
}

// CreateCheckoutSession opens a new checkout session.
func (p *HTTPProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error) {
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/checkout/sessions",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	var session CheckoutSession
	if err := resp.DecodeJSON(&session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}

// GetCheckoutSession fetches a session by id.
func (p *HTTPProvider) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/v1/checkout/sessions/" + id,
	})
	if httpclient.IsNotFound(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session CheckoutSession
	if err := resp.DecodeJSON(&session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}
