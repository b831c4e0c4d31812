package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StockStatus classifies an inventory level against its thresholds
type StockStatus string

const (
	StockStatusLow    StockStatus = "low"
	StockStatusNormal StockStatus = "normal"
	StockStatusHigh   StockStatus = "high"
)

const (
	DefaultMinStockLevel = 10
	DefaultMaxStockLevel = 100
)

// Valid reports whether s is a known status
func (s StockStatus) Valid() bool {
	return s == StockStatusLow || s == StockStatusNormal || s == StockStatusHigh
}

// DeriveStockStatus classifies current stock; low wins when both thresholds match
func DeriveStockStatus(current, min, max int) StockStatus {
	if current <= min {
		return StockStatusLow
	}
	if current >= max {
		return StockStatusHigh
	}
	return StockStatusNormal
}

// InventoryLevel tracks warehouse stock thresholds for a single product
type InventoryLevel struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ProductID     uuid.UUID `json:"product_id" db:"product_id"`
	CurrentStock  int       `json:"current_stock" db:"current_stock"`
	MinStockLevel int       `json:"min_stock_level" db:"min_stock_level"`
	MaxStockLevel int       `json:"max_stock_level" db:"max_stock_level"`
	Location      string    `json:"location" db:"location"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// StockStatus derives low/normal/high from the thresholds
func (l *InventoryLevel) StockStatus() StockStatus {
	return DeriveStockStatus(l.CurrentStock, l.MinStockLevel, l.MaxStockLevel)
}

// NeedsReorder reports whether the level is at or below its minimum
func (l *InventoryLevel) NeedsReorder() bool {
	return l.CurrentStock <= l.MinStockLevel
}

// MarshalJSON adds the derived stock status to the stored fields
func (l InventoryLevel) MarshalJSON() ([]byte, error) {
	type level InventoryLevel
	return json.Marshal(struct {
		level
		StockStatus  StockStatus `json:"stock_status"`
		NeedsReorder bool        `json:"needs_reorder"`
	}{
		level:        level(l),
		StockStatus:  l.StockStatus(),
		NeedsReorder: l.NeedsReorder(),
	})
}

// Validate checks the threshold invariants
func (l *InventoryLevel) Validate() error {
	if l.CurrentStock < 0 || l.MinStockLevel < 0 || l.MaxStockLevel < 0 {
		return ErrNegativeStock
	}
	if l.MaxStockLevel < l.MinStockLevel {
		return ErrInvalidStockLevels
	}
	return nil
}
