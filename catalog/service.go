package catalog

import (
	"context"
	"fmt"

	"github.com/trendora/platform/events"
	"github.com/trendora/platform/logger"
)

// Publisher is the slice of the event producer the catalog needs.
type Publisher interface {
	SendJSON(ctx context.Context, topic, key string, value interface{}) error
}

// Service performs catalog mutations and emits the corresponding events.
//
// Event publishing on this path is best-effort: a broker outage must not
// block catalog administration, so publish failures are logged loudly and
// the mutation still succeeds. The payment mirror catches up once the
// broker returns and the events flow again.
type Service struct {
	store     *Store
	publisher Publisher
	log       *logger.Logger
}

// NewService creates the catalog service.
func NewService(store *Store, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		log:       log.WithComponent("catalog"),
	}
}

// CreateProduct persists the product and announces it on product.created.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return err
	}

	event := events.ProductCreated{
		ID:    fmt.Sprint(p.ID),
		Name:  p.Name,
		Price: p.Price,
	}
	if err := s.publisher.SendJSON(ctx, events.TopicProductCreated, event.ID, event); err != nil {
		s.log.Error("Product created but event publish failed, payment mirror is stale", map[string]interface{}{
			logger.FieldTopic:     events.TopicProductCreated,
			logger.FieldProductID: p.ID,
			"error":               err.Error(),
		})
	}
	return nil
}

// UpdateProduct applies updates to a stored product.
func (s *Service) UpdateProduct(ctx context.Context, id uint, updates *Product) (*Product, error) {
	return s.store.UpdateProduct(ctx, id, updates)
}

// DeleteProduct removes the product and announces it on product.deleted.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}

	event := events.ProductDeleted{ID: fmt.Sprint(id)}
	if err := s.publisher.SendJSON(ctx, events.TopicProductDeleted, event.ID, event); err != nil {
		s.log.Error("Product deleted but event publish failed, payment mirror is stale", map[string]interface{}{
			logger.FieldTopic:     events.TopicProductDeleted,
			logger.FieldProductID: id,
			"error":               err.Error(),
		})
	}
	return nil
}

// GetProduct fetches a single product.
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	return s.store.GetProduct(ctx, id)
}

// ListProducts returns products matching the options.
func (s *Service) ListProducts(ctx context.Context, opts ListOptions) ([]Product, error) {
	return s.store.ListProducts(ctx, opts)
}

// CreateCategory persists a category. Categories are not mirrored, so no
// event is emitted.
func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	return s.store.CreateCategory(ctx, c)
}

// UpdateCategory applies updates to a stored category.
func (s *Service) UpdateCategory(ctx context.Context, id uint, updates *Category) (*Category, error) {
	return s.store.UpdateCategory(ctx, id, updates)
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return s.store.DeleteCategory(ctx, id)
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}
