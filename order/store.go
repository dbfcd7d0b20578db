package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "github.com/trendora/platform/errors"
)

// Store persists orders.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store and migrates the order schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Order{}); err != nil {
		return nil, fmt.Errorf("migrate order schema: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateOrder inserts an order. A duplicate session id reports created=false
// with a nil error: the order already exists and the caller treats the
// insert as done.
func (s *Store) CreateOrder(ctx context.Context, o *Order) (created bool, err error) {
	if o.SessionID == "" {
		return false, apperrors.InvalidInput("order requires a session id")
	}

	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, apperrors.Database("create order").WithCause(err)
	}
	return true, nil
}

// OrdersByUser returns a user's orders, newest first.
func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperrors.Database("list user orders").WithCause(err)
	}
	return orders, nil
}

// AllOrders returns every order, newest first.
func (s *Store) AllOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, apperrors.Database("list orders").WithCause(err)
	}
	return orders, nil
}

// OrderBySession fetches the order created for a checkout session.
func (s *Store) OrderBySession(ctx context.Context, sessionID string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("order", sessionID)
	}
	if err != nil {
		return nil, apperrors.Database("get order").WithCause(err)
	}
	return &order, nil
}
