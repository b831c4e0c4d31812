package domain

import "errors"

var (
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrNegativeStock      = errors.New("stock quantity must not be negative")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrInvalidStockLevels = errors.New("max stock level must not be lower than min stock level")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrDuplicateOrderItem = errors.New("order contains the same product more than once")
	ErrStatusTransition   = errors.New("order status transition not allowed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidStockStatus = errors.New("stock status must be low, normal or high")
)
