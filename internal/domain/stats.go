package domain

import "github.com/shopspring/decimal"

// DashboardStats is the aggregate view shown on the warehouse dashboard
type DashboardStats struct {
	TotalProducts       int                 `json:"total_products"`
	TotalCustomers      int                 `json:"total_customers"`
	TotalOrders         int                 `json:"total_orders"`
	ActiveOrders        int                 `json:"active_orders"`
	OrdersByStatus      map[OrderStatus]int `json:"orders_by_status"`
	TotalSales          decimal.Decimal     `json:"total_sales"`
	AverageOrderValue   decimal.Decimal     `json:"average_order_value"`
	AverageProductPrice decimal.Decimal     `json:"average_product_price"`
	TotalStockValue     decimal.Decimal     `json:"total_stock_value"`
	LowStockThreshold   int                 `json:"low_stock_threshold"`
	LowStockCount       int                 `json:"low_stock_count"`
	LowStockProducts    []*Product          `json:"low_stock_products"`
}

// SalesReport is the subset of statistics used by the reports endpoint
type SalesReport struct {
	TotalSales          decimal.Decimal `json:"total_sales"`
	AverageOrderValue   decimal.Decimal `json:"average_order_value"`
	AverageProductPrice decimal.Decimal `json:"average_product_price"`
	CompletedOrders     int             `json:"completed_orders"`
}

// InventorySummary counts inventory levels per stock status
type InventorySummary struct {
	TotalLevels int `json:"total_levels"`
	Low         int `json:"low"`
	Normal      int `json:"normal"`
	High        int `json:"high"`
}

// Page describes a slice of a larger result set
type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// TotalPages rounds up total over page size
func (p Page) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// CategorySummary aggregates the products sharing a category
type CategorySummary struct {
	Name         string          `json:"name"`
	ProductCount int             `json:"product_count"`
	TotalStock   int             `json:"total_stock"`
	StockValue   decimal.Decimal `json:"stock_value"`
}
