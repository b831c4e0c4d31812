package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidThreshold = errors.New("threshold must not be negative")

// ProductInput carries the writable product fields
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Category      string
	SKU           string
}

// CatalogService manages the product catalog
type CatalogService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Pagination) ([]*domain.Product, int, error)
	LowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
	Categories(ctx context.Context) ([]*domain.CategorySummary, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	logger       *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

func (in ProductInput) apply(product *domain.Product) {
	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.Price = in.Price.Round(domain.PriceScale)
	product.StockQuantity = in.StockQuantity
	product.Category = strings.TrimSpace(in.Category)
	product.SKU = strings.TrimSpace(in.SKU)
}

// CreateProduct validates and stores a new product
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	input.apply(product)

	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)

	return product, nil
}

// UpdateProduct replaces the writable fields of a product
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.apply(product)
	product.UpdatedAt = time.Now().UTC()

	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct removes a product together with its inventory level and order lines
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Pagination) ([]*domain.Product, int, error) {
	products, total, err := s.productRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// LowStock lists products at or below threshold, scarcest first
func (s *catalogService) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	if threshold < 0 {
		return nil, ErrInvalidThreshold
	}

	products, err := s.productRepo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]*domain.CategorySummary, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
