package repository

import (
	"context"
	"database/sql"
	"fmt"

	"warehouse/internal/domain"

	"github.com/shopspring/decimal"
)

// StatsRepository computes store-wide aggregates in SQL
type StatsRepository interface {
	Totals(ctx context.Context) (*Totals, error)
	OrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

// Totals holds the raw aggregates behind the dashboard. Empty tables yield zeros.
type Totals struct {
	Products            int
	Customers           int
	Orders              int
	OrderSum            decimal.Decimal
	OrderAverage        decimal.Decimal
	AverageProductPrice decimal.Decimal
	StockValue          decimal.Decimal
}

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new instance of StatsRepository
func NewStatsRepository(db *sql.DB) StatsRepository {
	return &statsRepository{db: db}
}

// Totals runs every scalar aggregate in a single round trip
func (r *statsRepository) Totals(ctx context.Context) (*Totals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders),
			(SELECT COALESCE(AVG(total_amount), 0) FROM orders),
			(SELECT COALESCE(AVG(price), 0) FROM products),
			(SELECT COALESCE(SUM(price * stock_quantity), 0) FROM products)
	`

	totals := &Totals{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&totals.Products,
		&totals.Customers,
		&totals.Orders,
		&totals.OrderSum,
		&totals.OrderAverage,
		&totals.AverageProductPrice,
		&totals.StockValue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}

	return totals, nil
}

// OrdersByStatus counts orders per status; every known status is present
func (r *statsRepository) OrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	counts := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for _, status := range domain.OrderStatuses {
		counts[status] = 0
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[domain.OrderStatus(status)] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order counts: %w", err)
	}

	return counts, nil
}
