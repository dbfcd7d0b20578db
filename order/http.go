package order

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/trendora/platform/errors"
	"github.com/trendora/platform/server/middleware"
)

// Handler exposes order history over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates the order HTTP handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Register mounts the order routes. user guards /user-orders, admin guards
// the full listing.
func (h *Handler) Register(r gin.IRouter, user, admin []gin.HandlerFunc) {
	r.Group("", user...).GET("/user-orders", h.userOrders)
	r.Group("", admin...).GET("/orders", h.allOrders)
}

func (h *Handler) userOrders(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, apperrors.Unauthorized("Authentication required"))
		return
	}

	orders, err := h.store.OrdersByUser(c.Request.Context(), principal.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) allOrders(c *gin.Context) {
	orders, err := h.store.AllOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	internal := apperrors.Internal("An unexpected error occurred.")
	c.JSON(internal.HTTPStatus, internal.ToResponse())
}
