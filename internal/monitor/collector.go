package monitor

import (
	"context"
	"time"

	"warehouse/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricsNamespace = "warehouse"
	collectTimeout   = 5 * time.Second
)

// StatsCollector exposes catalog and order totals, computed at scrape time
type StatsCollector struct {
	stats             repository.StatsRepository
	products          repository.ProductRepository
	lowStockThreshold int
	logger            *zap.Logger

	productsDesc   *prometheus.Desc
	customersDesc  *prometheus.Desc
	ordersDesc     *prometheus.Desc
	stockValueDesc *prometheus.Desc
	lowStockDesc   *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector returns a new collector over the store aggregates
func NewStatsCollector(
	stats repository.StatsRepository,
	products repository.ProductRepository,
	lowStockThreshold int,
	logger *zap.Logger,
) *StatsCollector {
	return &StatsCollector{
		stats:             stats,
		products:          products,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
		productsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "catalog", "products"),
			"Number of products in the catalog.", nil, nil),
		customersDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "customers"),
			"Number of customers.", nil, nil),
		ordersDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "orders"),
			"Number of orders.", nil, nil),
		stockValueDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "catalog", "stock_value"),
			"Total value of stock on hand.", nil, nil),
		lowStockDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "catalog", "low_stock_products"),
			"Number of products at or below the low stock threshold.", nil, nil),
	}
}

// Describe implements the prometheus.Collector interface.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.productsDesc
	ch <- c.customersDesc
	ch <- c.ordersDesc
	ch <- c.stockValueDesc
	ch <- c.lowStockDesc
}

// Collect implements the prometheus.Collector interface. Failed queries
// are logged and their metrics omitted.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	totals, err := c.stats.Totals(ctx)
	if err != nil {
		c.logger.Warn("Failed to collect store totals", zap.Error(err))
	} else {
		stockValue, _ := totals.StockValue.Float64()
		ch <- prometheus.MustNewConstMetric(c.productsDesc, prometheus.GaugeValue, float64(totals.Products))
		ch <- prometheus.MustNewConstMetric(c.customersDesc, prometheus.GaugeValue, float64(totals.Customers))
		ch <- prometheus.MustNewConstMetric(c.ordersDesc, prometheus.GaugeValue, float64(totals.Orders))
		ch <- prometheus.MustNewConstMetric(c.stockValueDesc, prometheus.GaugeValue, stockValue)
	}

	lowStock, err := c.products.ListLowStock(ctx, c.lowStockThreshold)
	if err != nil {
		c.logger.Warn("Failed to collect low stock products", zap.Error(err))
		return
	}
	ch <- prometheus.MustNewConstMetric(c.lowStockDesc, prometheus.GaugeValue, float64(len(lowStock)))
}
