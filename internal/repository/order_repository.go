package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"warehouse/internal/database"
	"warehouse/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderStatusConflict = errors.New("order status changed concurrently")
)

// OrderFilter narrows an order listing. Zero values are ignored.
type OrderFilter struct {
	Search   string
	Status   domain.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
	SortBy   string
}

var orderSortFields = map[string]string{
	"placed_at":    "o.placed_at",
	"total_amount": "o.total_amount",
	"status":       "o.status",
}

// OrderRepository defines the interface for order data access.
// Deleting an order removes its items; stock is only restored by a cancelling status change.
type OrderRepository interface {
	Place(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter, page Pagination) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, restock bool) error
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.customer_id, o.total_amount, o.status, o.placed_at, o.shipping_address, o.notes, o.updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.TotalAmount,
		&order.Status,
		&order.PlacedAt,
		&order.ShippingAddress,
		&order.Notes,
		&order.UpdatedAt,
	)
	return order, err
}

// Place stores an order and its items in one transaction. Each item's product
// stock is decremented and its current price captured into item.Price; the
// order total is computed from those prices. Any failure leaves no trace.
func (r *orderRepository) Place(ctx context.Context, order *domain.Order) error {
	// rows are locked in product id order so concurrent orders cannot deadlock
	slices.SortFunc(order.Items, func(a, b *domain.OrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, item := range order.Items {
			price, taken, err := reserveStock(ctx, tx, item.ProductID, item.Quantity, order.UpdatedAt)
			if err != nil {
				return err
			}
			item.Price = price
			item.LevelReserved = taken
			item.OrderID = order.ID
		}
		order.TotalAmount = order.TotalFromItems()

		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, total_amount, status, placed_at, shipping_address, notes, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			order.ID,
			order.CustomerID,
			order.TotalAmount,
			string(order.Status),
			order.PlacedAt,
			order.ShippingAddress,
			order.Notes,
			order.UpdatedAt,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err, "fk_orders_customer") {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, quantity, price, level_reserved)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.LevelReserved)
			if err != nil {
				if database.IsUniqueViolation(err, "order_items_order_product_key") {
					return domain.ErrDuplicateOrderItem
				}
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		return nil
	})
}

// reserveStock decrements a product and its inventory level. It returns the
// unit price and how many units came off the level, which stops at zero.
func reserveStock(ctx context.Context, q querier, productID uuid.UUID, quantity int, now time.Time) (decimal.Decimal, int, error) {
	var price decimal.Decimal
	err := q.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = $3
		WHERE id = $2 AND stock_quantity >= $1
		RETURNING price
	`, quantity, productID, now).Scan(&price)

	if err == sql.ErrNoRows {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return price, 0, fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return price, 0, ErrProductNotFound
		}
		return price, 0, domain.ErrInsufficientStock
	}
	if err != nil {
		return price, 0, fmt.Errorf("failed to reserve stock: %w", err)
	}

	var current int
	err = q.QueryRowContext(ctx, `
		SELECT current_stock FROM inventory_levels WHERE product_id = $1 FOR UPDATE
	`, productID).Scan(&current)
	if err == sql.ErrNoRows {
		return price, 0, nil
	}
	if err != nil {
		return price, 0, fmt.Errorf("failed to lock inventory level: %w", err)
	}

	taken := min(current, quantity)
	_, err = q.ExecContext(ctx, `
		UPDATE inventory_levels
		SET current_stock = current_stock - $1, updated_at = $3
		WHERE product_id = $2
	`, taken, productID, now)
	if err != nil {
		return price, 0, fmt.Errorf("failed to update inventory level: %w", err)
	}

	return price, taken, nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price, level_reserved
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	order.Items = []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.LevelReserved); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, nil
}

// List retrieves orders without their items. Search matches the order id and
// the customer's name or email.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page Pagination) ([]*domain.Order, int, error) {
	page = page.Normalize()
	sortBy, sortOrder := ParseSort(filter.SortBy, orderSortFields, "o.placed_at", SortOrderDesc)

	where := &whereBuilder{}
	if filter.Search != "" {
		where.add(`(o.id::text ILIKE %[1]s OR c.first_name ILIKE %[1]s OR c.last_name ILIKE %[1]s OR c.email ILIKE %[1]s)`,
			containsPattern(filter.Search))
	}
	if filter.Status != "" {
		where.add("o.status = %s", string(filter.Status))
	}
	if filter.DateFrom != nil {
		where.add("o.placed_at >= %s", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where.add("o.placed_at <= %s", *filter.DateTo)
	}

	from := `FROM orders o JOIN customers c ON c.id = o.customer_id`

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s %s", from, where)
	if err := r.db.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		%s
		%s
		ORDER BY %s %s, o.id
		%s
	`, orderColumns, from, where, sortBy, sortOrder, where.limitClause(page))

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus moves an order from one status to another. The update only
// applies while the stored status still equals from. With restock set, every
// item quantity is returned to its product, and each inventory level gets back
// what placement took from it.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, restock bool) error {
	now := time.Now().UTC()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $3, updated_at = $4
			WHERE id = $1 AND status = $2
		`, id, string(from), string(to), now)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check order: %w", err)
			}
			if !exists {
				return ErrOrderNotFound
			}
			return ErrOrderStatusConflict
		}

		if !restock {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products p
			SET stock_quantity = p.stock_quantity + oi.quantity, updated_at = $2
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = p.id
		`, id, now)
		if err != nil {
			return fmt.Errorf("failed to restock products: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE inventory_levels il
			SET current_stock = il.current_stock + oi.level_reserved, updated_at = $2
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = il.product_id
		`, id, now)
		if err != nil {
			return fmt.Errorf("failed to restock inventory levels: %w", err)
		}

		return nil
	})
}

// UpdateTotal overwrites the stored order total
func (r *orderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET total_amount = $2, updated_at = $3 WHERE id = $1
	`, id, total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Delete removes an order and, through the schema, its items
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
