package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the stock level at or below which a product is flagged for reorder
const DefaultLowStockThreshold = 10

// PriceScale is the number of decimal places prices are stored with
const PriceScale = 2

// Product represents a product in the catalog
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	StockQuantity int             `json:"stock_quantity" db:"stock_quantity"`
	Category      string          `json:"category" db:"category"`
	SKU           string          `json:"sku,omitempty" db:"sku"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// IsInStock reports whether at least one unit is available
func (p *Product) IsInStock() bool {
	return p.StockQuantity > 0
}

func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		IsInStock bool `json:"is_in_stock"`
	}{product(p), p.IsInStock()})
}

// IsLowStock reports whether the stock is at or below threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.StockQuantity <= threshold
}

// StockValue is price times units on hand
func (p *Product) StockValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
}

// Validate checks the catalog invariants
func (p *Product) Validate() error {
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.StockQuantity < 0 {
		return ErrNegativeStock
	}
	return nil
}
