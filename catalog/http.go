package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/trendora/platform/errors"
)

// productRequest is the payload for product create and update.
type productRequest struct {
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Colors      []string          `json:"colors"`
	Images      map[string]string `json:"images"`
	CategoryID  *uint             `json:"categoryId"`
}

// categoryRequest is the payload for category create and update.
type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Handler exposes the catalog over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates the catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the catalog routes. Reads are public; writes require an
// authenticated admin. The admin guard is passed in so tests can mount the
// routes without token plumbing.
func (h *Handler) Register(r gin.IRouter, admin ...gin.HandlerFunc) {
	products := r.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)

	productAdmin := products.Group("", admin...)
	productAdmin.POST("", h.createProduct)
	productAdmin.PUT("/:id", h.updateProduct)
	productAdmin.DELETE("/:id", h.deleteProduct)

	categories := r.Group("/categories")
	categories.GET("", h.listCategories)

	categoryAdmin := categories.Group("", admin...)
	categoryAdmin.POST("", h.createCategory)
	categoryAdmin.PUT("/:id", h.updateCategory)
	categoryAdmin.DELETE("/:id", h.deleteCategory)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidInput("Invalid product payload").WithCause(err))
		return
	}
	if req.Name == "" || req.Slug == "" || req.Price <= 0 {
		respondError(c, apperrors.InvalidInput("name, slug and a positive price are required"))
		return
	}
	if appErr := validateVariants(req.Colors, req.Images); appErr != nil {
		respondError(c, appErr)
		return
	}

	product := &Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Colors:      req.Colors,
		Images:      req.Images,
		CategoryID:  req.CategoryID,
	}
	if err := h.service.CreateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidInput("Invalid product payload").WithCause(err))
		return
	}
	// Colors and images always travel together; a partial update of one
	// without the other would desync the variant map.
	if len(req.Colors) > 0 || len(req.Images) > 0 {
		if appErr := validateVariants(req.Colors, req.Images); appErr != nil {
			respondError(c, appErr)
			return
		}
	}

	updates := &Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Price:       req.Price,
		Colors:      req.Colors,
		Images:      req.Images,
		CategoryID:  req.CategoryID,
	}
	product, err := h.service.UpdateProduct(c.Request.Context(), id, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	opts := ListOptions{
		Sort:     c.Query("sort"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, apperrors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		opts.Limit = limit
	}

	products, err := h.service.ListProducts(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidInput("Invalid category payload").WithCause(err))
		return
	}
	if req.Name == "" || req.Slug == "" {
		respondError(c, apperrors.InvalidInput("name and slug are required"))
		return
	}

	category := &Category{Name: req.Name, Slug: req.Slug}
	if err := h.service.CreateCategory(c.Request.Context(), category); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidInput("Invalid category payload").WithCause(err))
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), id, &Category{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// validateVariants checks the colors/images invariant: colors is a non-empty
// list, images a non-empty map, and every color has an image.
func validateVariants(colors []string, images map[string]string) *apperrors.AppError {
	if len(colors) == 0 {
		return apperrors.InvalidInput("Colors array is required!")
	}
	if len(images) == 0 {
		return apperrors.InvalidInput("Images object is required!")
	}
	var missing []string
	for _, color := range colors {
		if _, ok := images[color]; !ok {
			missing = append(missing, color)
		}
	}
	if len(missing) > 0 {
		return apperrors.InvalidInput("Missing images for colors!").WithDetail("missingColors", missing)
	}
	return nil
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, apperrors.InvalidInput("id must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	internal := apperrors.Internal("An unexpected error occurred.")
	c.JSON(internal.HTTPStatus, internal.ToResponse())
}
