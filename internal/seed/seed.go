// Package seed fills an empty store with plausible fake records for demos
// and local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warehouse/internal/domain"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options sets how many records of each kind to create. Seed 0 picks a random seed.
type Options struct {
	Products  int
	Customers int
	Orders    int
	Seed      uint64
}

// DefaultOptions mirrors a small demo store
func DefaultOptions() Options {
	return Options{Products: 10, Customers: 5, Orders: 10}
}

// Result counts the records created
type Result struct {
	Products        int `json:"products"`
	Customers       int `json:"customers"`
	Orders          int `json:"orders"`
	InventoryLevels int `json:"inventory_levels"`
}

// Seeder writes fake data through the services so every invariant holds
type Seeder struct {
	catalog   service.CatalogService
	customers service.CustomerService
	orders    service.OrderService
	inventory service.InventoryService
	logger    *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(
	catalog service.CatalogService,
	customers service.CustomerService,
	orders service.OrderService,
	inventory service.InventoryService,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		catalog:   catalog,
		customers: customers,
		orders:    orders,
		inventory: inventory,
		logger:    logger,
	}
}

// Run creates products with inventory levels, then customers, then orders
// against them. Orders that would oversell are skipped.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	faker := gofakeit.New(opts.Seed)
	result := &Result{}

	products := make([]*domain.Product, 0, opts.Products)
	for i := 0; i < opts.Products; i++ {
		product, err := s.catalog.CreateProduct(ctx, service.ProductInput{
			Name:          faker.ProductName(),
			Description:   faker.ProductDescription(),
			Price:         decimal.NewFromFloat(faker.Price(10, 100)).Round(2),
			StockQuantity: faker.IntRange(1, 100),
			Category:      faker.ProductCategory(),
			SKU:           "SKU-" + strings.ToUpper(uuid.NewString()[:8]),
		})
		if err != nil {
			return result, fmt.Errorf("failed to seed product: %w", err)
		}
		products = append(products, product)
		result.Products++

		minLevel := faker.IntRange(0, 20)
		maxLevel := minLevel + faker.IntRange(20, 200)
		_, err = s.inventory.CreateLevel(ctx, service.InventoryInput{
			ProductID:     product.ID,
			CurrentStock:  product.StockQuantity,
			MinStockLevel: &minLevel,
			MaxStockLevel: &maxLevel,
			Location:      fmt.Sprintf("%s-%02d", faker.RandomString([]string{"A", "B", "C", "D"}), faker.IntRange(1, 40)),
		})
		if err != nil {
			return result, fmt.Errorf("failed to seed inventory level: %w", err)
		}
		result.InventoryLevels++
	}

	customers := make([]*domain.Customer, 0, opts.Customers)
	for i := 0; i < opts.Customers; i++ {
		address := faker.Address()
		customer, err := s.customers.CreateCustomer(ctx, service.CustomerInput{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Email:     faker.Email(),
			Phone:     faker.Phone(),
			Address:   address.Address,
		})
		if errors.Is(err, repository.ErrCustomerAlreadyExists) {
			s.logger.Debug("Skipping duplicate fake customer")
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to seed customer: %w", err)
		}
		customers = append(customers, customer)
		result.Customers++
	}

	if len(customers) == 0 || len(products) == 0 {
		return result, nil
	}

	for i := 0; i < opts.Orders; i++ {
		input := service.PlaceOrderInput{
			CustomerID:      customers[faker.IntRange(0, len(customers)-1)].ID,
			ShippingAddress: faker.Address().Address,
		}
		for _, idx := range pickDistinct(faker, len(products), faker.IntRange(1, min(3, len(products)))) {
			input.Items = append(input.Items, service.OrderLineInput{
				ProductID: products[idx].ID,
				Quantity:  faker.IntRange(1, 3),
			})
		}

		order, err := s.orders.PlaceOrder(ctx, input)
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.logger.Debug("Skipping fake order that would oversell")
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to seed order: %w", err)
		}
		result.Orders++

		if err := s.advance(ctx, faker, order); err != nil {
			return result, err
		}
	}

	s.logger.Info("Seeded store",
		zap.Int("products", result.Products),
		zap.Int("customers", result.Customers),
		zap.Int("orders", result.Orders),
	)

	return result, nil
}

// advance walks a new order along a random lifecycle path
func (s *Seeder) advance(ctx context.Context, faker *gofakeit.Faker, order *domain.Order) error {
	var path []domain.OrderStatus
	switch faker.IntRange(0, 3) {
	case 1:
		path = []domain.OrderStatus{domain.OrderStatusProcessed}
	case 2:
		path = []domain.OrderStatus{domain.OrderStatusProcessed, domain.OrderStatusCompleted}
	case 3:
		path = []domain.OrderStatus{domain.OrderStatusCancelled}
	}

	for _, status := range path {
		if _, err := s.orders.UpdateStatus(ctx, order.ID, status); err != nil {
			return fmt.Errorf("failed to advance seeded order: %w", err)
		}
	}
	return nil
}

// pickDistinct returns k distinct indexes below n
func pickDistinct(faker *gofakeit.Faker, n, k int) []int {
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	for i := 0; i < k; i++ {
		j := faker.IntRange(i, n-1)
		indexes[i], indexes[j] = indexes[j], indexes[i]
	}
	return indexes[:k]
}
