package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"warehouse/internal/database"
	"warehouse/internal/domain"
	"warehouse/internal/repository"

	"go.uber.org/zap"
)

// Limits past which a health check fails
const (
	MaxCPUPercent       = 90.0
	MaxMemoryPercent    = 90.0
	MaxLowStockProducts = 5
	MaxQueryTime        = 2 * time.Second
)

// Counts are the record totals reported by a health check
type Counts struct {
	Products  int `json:"products"`
	Customers int `json:"customers"`
	Orders    int `json:"orders"`
}

// LowStockItem is a product at or below the low stock threshold
type LowStockItem struct {
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// Report is the outcome of one health check. Healthy is false when any issue was found.
type Report struct {
	Timestamp         time.Time         `json:"timestamp"`
	Healthy           bool              `json:"healthy"`
	Host              *HostStats        `json:"host,omitempty"`
	Database          map[string]string `json:"database"`
	Counts            *Counts           `json:"counts,omitempty"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	LowStock          []LowStockItem    `json:"low_stock"`
	QueryTime         time.Duration     `json:"query_time_ns"`
	Issues            []string          `json:"issues"`
}

// Checker inspects the host, the database and the catalog
type Checker struct {
	db                database.Service
	stats             repository.StatsRepository
	products          repository.ProductRepository
	host              HostSampler
	lowStockThreshold int
	maxQueryTime      time.Duration
	logger            *zap.Logger
}

// NewChecker creates a new Checker
func NewChecker(
	db database.Service,
	stats repository.StatsRepository,
	products repository.ProductRepository,
	host HostSampler,
	lowStockThreshold int,
	logger *zap.Logger,
) *Checker {
	return &Checker{
		db:                db,
		stats:             stats,
		products:          products,
		host:              host,
		lowStockThreshold: lowStockThreshold,
		maxQueryTime:      MaxQueryTime,
		logger:            logger,
	}
}

// Check runs every probe. A failing probe becomes an issue on the report;
// later probes still run.
func (c *Checker) Check(ctx context.Context) *Report {
	report := &Report{
		Timestamp:         time.Now().UTC(),
		LowStockThreshold: c.lowStockThreshold,
		LowStock:          []LowStockItem{},
		Issues:            []string{},
	}

	host, err := c.host.Sample(ctx)
	if err != nil {
		c.logger.Warn("Host sampling failed", zap.Error(err))
		report.Issues = append(report.Issues, err.Error())
	} else {
		report.Host = host
		if host.CPUPercent > MaxCPUPercent {
			report.Issues = append(report.Issues, fmt.Sprintf("high cpu usage: %.1f%%", host.CPUPercent))
		}
		if host.MemoryPercent > MaxMemoryPercent {
			report.Issues = append(report.Issues, fmt.Sprintf("high memory usage: %.1f%%", host.MemoryPercent))
		}
	}

	report.Database = c.db.Health(ctx)
	if report.Database["status"] != "up" {
		report.Issues = append(report.Issues, "database unavailable")
		report.Healthy = false
		return report
	}

	started := time.Now()
	totals, err := c.stats.Totals(ctx)
	if err != nil {
		c.logger.Error("Failed to count records", zap.Error(err))
		report.Issues = append(report.Issues, "failed to count records")
	} else {
		report.Counts = &Counts{
			Products:  totals.Products,
			Customers: totals.Customers,
			Orders:    totals.Orders,
		}
	}

	lowStock, err := c.products.ListLowStock(ctx, c.lowStockThreshold)
	if err != nil {
		c.logger.Error("Failed to list low stock products", zap.Error(err))
		report.Issues = append(report.Issues, "failed to list low stock products")
	} else {
		report.LowStock = lowStockItems(lowStock)
		if len(lowStock) > MaxLowStockProducts {
			report.Issues = append(report.Issues, fmt.Sprintf("%d products low on stock", len(lowStock)))
		}
	}

	report.QueryTime = time.Since(started)
	if report.QueryTime > c.maxQueryTime {
		report.Issues = append(report.Issues, fmt.Sprintf("slow database queries: %s", report.QueryTime.Round(time.Millisecond)))
	}

	report.Healthy = len(report.Issues) == 0
	return report
}

// Watch runs a check right away and then once per interval until ctx is
// done, handing every report to emit. An error from emit ends the loop and
// is returned.
func (c *Checker) Watch(ctx context.Context, interval time.Duration, emit func(*Report) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report := c.Check(ctx)
		if !report.Healthy {
			c.logger.Warn("Health check failed", zap.Strings("issues", report.Issues))
		}
		if err := emit(report); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func lowStockItems(products []*domain.Product) []LowStockItem {
	items := make([]LowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, LowStockItem{Name: p.Name, SKU: p.SKU, Stock: p.StockQuantity})
	}
	return items
}

// WriteText renders the report for terminals
func (r *Report) WriteText(w io.Writer) error {
	status := "HEALTHY"
	if !r.Healthy {
		status = "UNHEALTHY"
	}

	lines := []string{
		fmt.Sprintf("System health: %s (%s)", status, r.Timestamp.Format(time.RFC3339)),
	}
	if r.Host != nil {
		lines = append(lines,
			fmt.Sprintf("  CPU:    %.1f%%", r.Host.CPUPercent),
			fmt.Sprintf("  Memory: %.1f%%", r.Host.MemoryPercent),
			fmt.Sprintf("  Disk:   %.1f%%", r.Host.DiskPercent),
		)
	}
	lines = append(lines, fmt.Sprintf("  Database: %s", r.Database["status"]))
	if r.QueryTime > 0 {
		lines = append(lines, fmt.Sprintf("  Query time: %s", r.QueryTime.Round(time.Millisecond)))
	}
	if r.Counts != nil {
		lines = append(lines, fmt.Sprintf("  Products: %d  Customers: %d  Orders: %d",
			r.Counts.Products, r.Counts.Customers, r.Counts.Orders))
	}
	lines = append(lines, fmt.Sprintf("  Low stock (<= %d): %d", r.LowStockThreshold, len(r.LowStock)))
	for _, item := range r.LowStock {
		lines = append(lines, fmt.Sprintf("    - %s (%s): %d", item.Name, item.SKU, item.Stock))
	}
	for _, issue := range r.Issues {
		lines = append(lines, "  ! "+issue)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
