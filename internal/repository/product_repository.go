package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warehouse/internal/database"
	"warehouse/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this SKU already exists")
	ErrInvalidProduct       = errors.New("product violates a catalog constraint")
)

// ProductFilter narrows a product listing. Nil bounds are ignored.
type ProductFilter struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	MinStock *int
	MaxStock *int
	SortBy   string
}

var productSortFields = map[string]string{
	"name":           "name",
	"price":          "price",
	"stock_quantity": "stock_quantity",
	"created_at":     "created_at",
	"category":       "category",
}

// ProductRepository defines the interface for product data access.
// Deleting a product also removes its inventory level and every order item referencing it.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, page Pagination) ([]*domain.Product, int, error)
	ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, stock_quantity, category, COALESCE(sku, ''), created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.Category,
		&product.SKU,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}

func mapProductWriteError(err error, action string) error {
	switch {
	case database.IsUniqueViolation(err, "products_sku_key"):
		return ErrProductAlreadyExists
	case database.IsCheckViolation(err, ""):
		return ErrInvalidProduct
	}
	return fmt.Errorf("failed to %s product: %w", action, err)
}

// Create inserts a new product; an empty SKU is stored as NULL
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, stock_quantity, category, sku, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.Category,
		product.SKU,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return mapProductWriteError(err, "create")
	}

	return nil
}

// Update updates an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock_quantity = $5,
		    category = $6, sku = NULLIF($7, ''), updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.Category,
		product.SKU,
		product.UpdatedAt,
	)

	if err != nil {
		return mapProductWriteError(err, "update")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product; the schema cascades to inventory levels and order items
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products matching filter with sorting and pagination
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page Pagination) ([]*domain.Product, int, error) {
	page = page.Normalize()
	sortBy, sortOrder := ParseSort(filter.SortBy, productSortFields, "created_at", SortOrderDesc)

	where := &whereBuilder{}
	if filter.Search != "" {
		where.add("(name ILIKE %[1]s OR description ILIKE %[1]s OR sku ILIKE %[1]s)", containsPattern(filter.Search))
	}
	if filter.Category != "" {
		where.add("category = %s", filter.Category)
	}
	if filter.MinPrice != nil {
		where.add("price >= %s", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where.add("price <= %s", *filter.MaxPrice)
	}
	if filter.MinStock != nil {
		where.add("stock_quantity >= %s", *filter.MinStock)
	}
	if filter.MaxStock != nil {
		where.add("stock_quantity <= %s", *filter.MaxStock)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", where)
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s, id
		%s
	`, productColumns, where, sortBy, sortOrder, where.limitClause(page))

	products, err := r.query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ListLowStock returns products at or below threshold, scarcest first
func (r *productRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE stock_quantity <= $1
		ORDER BY stock_quantity ASC, name ASC
	`

	return r.query(ctx, query, threshold)
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
