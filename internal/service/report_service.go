package service

import (
	"context"
	"fmt"

	"warehouse/internal/domain"
	"warehouse/internal/repository"
)

// ReportService aggregates store-wide statistics for the dashboard and reports
type ReportService interface {
	Dashboard(ctx context.Context, threshold int) (*domain.DashboardStats, error)
	Sales(ctx context.Context) (*domain.SalesReport, error)
}

type reportService struct {
	statsRepo   repository.StatsRepository
	productRepo repository.ProductRepository
}

// NewReportService creates a new instance of ReportService
func NewReportService(statsRepo repository.StatsRepository, productRepo repository.ProductRepository) ReportService {
	return &reportService{
		statsRepo:   statsRepo,
		productRepo: productRepo,
	}
}

// Dashboard computes every dashboard figure from the stores. Averages are
// rounded to cents; empty stores produce zeros.
func (s *reportService) Dashboard(ctx context.Context, threshold int) (*domain.DashboardStats, error) {
	if threshold < 0 {
		return nil, ErrInvalidThreshold
	}

	totals, err := s.statsRepo.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}

	byStatus, err := s.statsRepo.OrdersByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load order counts: %w", err)
	}

	lowStock, err := s.productRepo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock products: %w", err)
	}

	return &domain.DashboardStats{
		TotalProducts:       totals.Products,
		TotalCustomers:      totals.Customers,
		TotalOrders:         totals.Orders,
		ActiveOrders:        byStatus[domain.OrderStatusActive],
		OrdersByStatus:      byStatus,
		TotalSales:          totals.OrderSum,
		AverageOrderValue:   totals.OrderAverage.Round(2),
		AverageProductPrice: totals.AverageProductPrice.Round(2),
		TotalStockValue:     totals.StockValue,
		LowStockThreshold:   threshold,
		LowStockCount:       len(lowStock),
		LowStockProducts:    lowStock,
	}, nil
}

// Sales returns the subset shown on the reports page
func (s *reportService) Sales(ctx context.Context) (*domain.SalesReport, error) {
	totals, err := s.statsRepo.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}

	byStatus, err := s.statsRepo.OrdersByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load order counts: %w", err)
	}

	return &domain.SalesReport{
		TotalSales:          totals.OrderSum,
		AverageOrderValue:   totals.OrderAverage.Round(2),
		AverageProductPrice: totals.AverageProductPrice.Round(2),
		CompletedOrders:     byStatus[domain.OrderStatusCompleted],
	}, nil
}
