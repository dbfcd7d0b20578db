package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/trendora/platform/errors"
)

// ListOptions filters and orders a product listing.
type ListOptions struct {
	// Sort is one of asc, desc (by price), oldest, newest. Default newest.
	Sort string
	// Category filters by category slug.
	Category string
	// Search matches a substring of the product name.
	Search string
	// Limit caps the result size; zero means no cap.
	Limit int
}

// Store persists products and categories.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store and migrates the catalog schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Category{}, &Product{}); err != nil {
		return nil, fmt.Errorf("migrate catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateProduct inserts a new product.
func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("product", p.Slug).WithCause(err)
		}
		return apperrors.Database("create product").WithCause(err)
	}
	return nil
}

// UpdateProduct applies non-zero fields of updates to the stored product.
func (s *Store) UpdateProduct(ctx context.Context, id uint, updates *Product) (*Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, apperrors.Database("update product").WithCause(err)
	}
	return product, nil
}

// DeleteProduct removes a product by id.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Product{}, id)
	if res.Error != nil {
		return apperrors.Database("delete product").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("product", fmt.Sprint(id))
	}
	return nil
}

// GetProduct fetches a product by id.
func (s *Store) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product", fmt.Sprint(id))
	}
	if err != nil {
		return nil, apperrors.Database("get product").WithCause(err)
	}
	return &product, nil
}

// ListProducts returns products matching the options.
func (s *Store) ListProducts(ctx context.Context, opts ListOptions) ([]Product, error) {
	q := s.db.WithContext(ctx).Model(&Product{})

	if opts.Category != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", opts.Category)
	}
	if opts.Search != "" {
		q = q.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}

	switch opts.Sort {
	case "asc":
		q = q.Order("products.price ASC")
	case "desc":
		q = q.Order("products.price DESC")
	case "oldest":
		q = q.Order("products.created_at ASC")
	default:
		q = q.Order("products.created_at DESC")
	}

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var products []Product
	if err := q.Find(&products).Error; err != nil {
		return nil, apperrors.Database("list products").WithCause(err)
	}
	return products, nil
}

// CreateCategory inserts a new category.
func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("category", c.Slug).WithCause(err)
		}
		return apperrors.Database("create category").WithCause(err)
	}
	return nil
}

// UpdateCategory applies non-zero fields of updates to the stored category.
func (s *Store) UpdateCategory(ctx context.Context, id uint, updates *Category) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("category", fmt.Sprint(id))
	}
	if err != nil {
		return nil, apperrors.Database("get category").WithCause(err)
	}
	if err := s.db.WithContext(ctx).Model(&category).Updates(updates).Error; err != nil {
		return nil, apperrors.Database("update category").WithCause(err)
	}
	return &category, nil
}

// DeleteCategory removes a category by id.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Category{}, id)
	if res.Error != nil {
		return apperrors.Database("delete category").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("category", fmt.Sprint(id))
	}
	return nil
}

// ListCategories returns all categories.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Database("list categories").WithCause(err)
	}
	return categories, nil
}
