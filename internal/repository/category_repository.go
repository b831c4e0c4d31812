package repository

import (
	"context"
	"database/sql"
	"fmt"

	"warehouse/internal/domain"
)

// CategoryRepository reads the product categories in use.
// Categories are free-form product attributes, not rows of their own.
type CategoryRepository interface {
	List(ctx context.Context) ([]*domain.CategorySummary, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List retrieves every non-empty category with its product count and stock value
func (r *categoryRepository) List(ctx context.Context) ([]*domain.CategorySummary, error) {
	query := `
		SELECT category, COUNT(*), COALESCE(SUM(stock_quantity), 0), COALESCE(SUM(price * stock_quantity), 0)
		FROM products
		WHERE category <> ''
		GROUP BY category
		ORDER BY category ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.CategorySummary{}
	for rows.Next() {
		category := &domain.CategorySummary{}
		err := rows.Scan(
			&category.Name,
			&category.ProductCount,
			&category.TotalStock,
			&category.StockValue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
