package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/trendora/platform/errors"
	"github.com/trendora/platform/server/middleware"
)

// CheckoutConfig configures checkout session creation.
type CheckoutConfig struct {
	// ReturnURL is where the provider redirects after checkout. The
	// provider substitutes {CHECKOUT_SESSION_ID} with the session id.
	ReturnURL string `yaml:"return_url" mapstructure:"return_url"`
}

// checkoutRequest is the payload for creating a checkout session.
type checkoutRequest struct {
	Products []CheckoutItem `json:"products" binding:"required,min=1,dive"`
}

// CheckoutHandler exposes checkout sessions over HTTP.
type CheckoutHandler struct {
	cfg      CheckoutConfig
	provider Provider
}

// NewCheckoutHandler creates the checkout HTTP handler.
func NewCheckoutHandler(cfg CheckoutConfig, provider Provider) *CheckoutHandler {
	return &CheckoutHandler{cfg: cfg, provider: provider}
}

// Register mounts the checkout routes. Session creation requires an
// authenticated user; session status lookup is public so the storefront
// return page can poll it without a token.
func (h *CheckoutHandler) Register(r gin.IRouter, user ...gin.HandlerFunc) {
	sessions := r.Group("/sessions")
	sessions.GET("/:session_id", h.getSession)

	authed := sessions.Group("", user...)
	authed.POST("/create-checkout-session", h.createSession)
}

func (h *CheckoutHandler) createSession(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, apperrors.Unauthorized("Authentication required"))
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidInput("Invalid checkout payload").WithCause(err))
		return
	}

	session, err := h.provider.CreateCheckoutSession(c.Request.Context(), SessionRequest{
		ClientReferenceID: principal.Subject,
		Items:             req.Products,
		ReturnURL:         h.cfg.ReturnURL,
	})
	if err != nil {
		respondError(c, apperrors.Internal("Failed to create session").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkoutSessionClientSecret": session.ClientSecret})
}

func (h *CheckoutHandler) getSession(c *gin.Context) {
	session, err := h.provider.GetCheckoutSession(c.Request.Context(), c.Param("session_id"))
	if errors.Is(err, ErrSessionNotFound) {
		respondError(c, apperrors.NotFound("checkout session", c.Param("session_id")))
		return
	}
	if err != nil {
		respondError(c, apperrors.Internal("Failed to fetch session").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        session.Status,
		"paymentStatus": session.PaymentStatus,
	})
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	internal := apperrors.Internal("An unexpected error occurred.")
	c.JSON(internal.HTTPStatus, internal.ToResponse())
}
