package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusProcessed OrderStatus = "processed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in display order
var OrderStatuses = []OrderStatus{
	OrderStatusActive,
	OrderStatusProcessed,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// Cancelled and completed orders are final.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch s {
	case OrderStatusActive:
		return true
	case OrderStatusProcessed:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	default:
		return false
	}
}

// Order represents a customer order and its line items
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	CustomerID      uuid.UUID       `json:"customer_id" db:"customer_id"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status          OrderStatus     `json:"status" db:"status"`
	PlacedAt        time.Time       `json:"placed_at" db:"placed_at"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	Notes           string          `json:"notes" db:"notes"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
	Items           []*OrderItem    `json:"items,omitempty"`
}

// TotalFromItems sums the line totals of the order
func (o *Order) TotalFromItems() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

// ItemCount is the number of units across all lines
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// OrderItem is a single product line within an order.
// Price is the unit price captured when the order was placed.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`

	// LevelReserved is how much placement took from the product's inventory
	// level; it can be less than Quantity when the level ran short.
	LevelReserved int `json:"-" db:"level_reserved"`
}

// Total is quantity times unit price
func (i *OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the line item invariants
func (i *OrderItem) Validate() error {
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
