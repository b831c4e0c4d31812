package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warehouse/internal/database"
	"warehouse/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrInventoryLevelNotFound      = errors.New("inventory level not found")
	ErrInventoryLevelAlreadyExists = errors.New("product already has an inventory level")
	ErrInvalidInventoryLevel       = errors.New("inventory level violates a stock constraint")
)

// stockStatusConditions mirrors domain.DeriveStockStatus in SQL
var stockStatusConditions = map[domain.StockStatus]string{
	domain.StockStatusLow:    "current_stock <= min_stock_level",
	domain.StockStatusHigh:   "current_stock > min_stock_level AND current_stock >= max_stock_level",
	domain.StockStatusNormal: "current_stock > min_stock_level AND current_stock < max_stock_level",
}

// InventoryFilter narrows an inventory listing
type InventoryFilter struct {
	Status domain.StockStatus
}

// InventoryRepository defines the interface for inventory level data access.
// Each product has at most one level; deleting the product removes it.
type InventoryRepository interface {
	Create(ctx context.Context, level *domain.InventoryLevel) error
	Update(ctx context.Context, level *domain.InventoryLevel) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.InventoryLevel, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) (*domain.InventoryLevel, error)
	List(ctx context.Context, filter InventoryFilter, page Pagination) ([]*domain.InventoryLevel, int, error)
	Summary(ctx context.Context) (*domain.InventorySummary, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

const inventoryColumns = `id, product_id, current_stock, min_stock_level, max_stock_level, location, updated_at`

func scanInventoryLevel(row interface{ Scan(...interface{}) error }) (*domain.InventoryLevel, error) {
	level := &domain.InventoryLevel{}
	err := row.Scan(
		&level.ID,
		&level.ProductID,
		&level.CurrentStock,
		&level.MinStockLevel,
		&level.MaxStockLevel,
		&level.Location,
		&level.UpdatedAt,
	)
	return level, err
}

func mapInventoryWriteError(err error, action string) error {
	switch {
	case database.IsUniqueViolation(err, "inventory_levels_product_id_key"):
		return ErrInventoryLevelAlreadyExists
	case database.IsForeignKeyViolation(err, "fk_inventory_levels_product"):
		return ErrProductNotFound
	case database.IsCheckViolation(err, ""):
		return ErrInvalidInventoryLevel
	}
	return fmt.Errorf("failed to %s inventory level: %w", action, err)
}

// Create inserts a new inventory level
func (r *inventoryRepository) Create(ctx context.Context, level *domain.InventoryLevel) error {
	query := `
		INSERT INTO inventory_levels (id, product_id, current_stock, min_stock_level, max_stock_level, location, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		level.ID,
		level.ProductID,
		level.CurrentStock,
		level.MinStockLevel,
		level.MaxStockLevel,
		level.Location,
		level.UpdatedAt,
	)

	if err != nil {
		return mapInventoryWriteError(err, "create")
	}

	return nil
}

// Update updates an existing inventory level; the product link cannot change
func (r *inventoryRepository) Update(ctx context.Context, level *domain.InventoryLevel) error {
	query := `
		UPDATE inventory_levels
		SET current_stock = $2, min_stock_level = $3, max_stock_level = $4, location = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		level.ID,
		level.CurrentStock,
		level.MinStockLevel,
		level.MaxStockLevel,
		level.Location,
		level.UpdatedAt,
	)

	if err != nil {
		return mapInventoryWriteError(err, "update")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInventoryLevelNotFound
	}

	return nil
}

// Delete removes an inventory level
func (r *inventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inventory_levels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory level: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrInventoryLevelNotFound
	}

	return nil
}

// FindByID retrieves an inventory level by ID
func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.InventoryLevel, error) {
	return r.findOne(ctx, "id", id)
}

// FindByProductID retrieves the inventory level of a product
func (r *inventoryRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*domain.InventoryLevel, error) {
	return r.findOne(ctx, "product_id", productID)
}

func (r *inventoryRepository) findOne(ctx context.Context, column string, id uuid.UUID) (*domain.InventoryLevel, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_levels WHERE %s = $1`, inventoryColumns, column)

	level, err := scanInventoryLevel(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInventoryLevelNotFound
		}
		return nil, fmt.Errorf("failed to find inventory level by %s: %w", column, err)
	}

	return level, nil
}

// List retrieves inventory levels, optionally restricted to one stock status,
// most recently updated first
func (r *inventoryRepository) List(ctx context.Context, filter InventoryFilter, page Pagination) ([]*domain.InventoryLevel, int, error) {
	page = page.Normalize()

	where := &whereBuilder{}
	if filter.Status != "" {
		cond, ok := stockStatusConditions[filter.Status]
		if !ok {
			return nil, 0, fmt.Errorf("unknown stock status %q", filter.Status)
		}
		where.add(cond)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM inventory_levels %s", where)
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory levels: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM inventory_levels
		%s
		ORDER BY updated_at DESC, id
		%s
	`, inventoryColumns, where, where.limitClause(page))

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory levels: %w", err)
	}
	defer rows.Close()

	levels := []*domain.InventoryLevel{}
	for rows.Next() {
		level, err := scanInventoryLevel(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan inventory level: %w", err)
		}
		levels = append(levels, level)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating inventory levels: %w", err)
	}

	return levels, total, nil
}

// Summary counts inventory levels per stock status
func (r *inventoryRepository) Summary(ctx context.Context) (*domain.InventorySummary, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE %s),
			COUNT(*) FILTER (WHERE %s),
			COUNT(*) FILTER (WHERE %s)
		FROM inventory_levels
	`,
		stockStatusConditions[domain.StockStatusLow],
		stockStatusConditions[domain.StockStatusNormal],
		stockStatusConditions[domain.StockStatusHigh],
	)

	summary := &domain.InventorySummary{}
	err := r.db.QueryRowContext(ctx, query).Scan(&summary.TotalLevels, &summary.Low, &summary.Normal, &summary.High)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize inventory levels: %w", err)
	}

	return summary, nil
}
