package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLineInput requests a quantity of one product
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput describes a new order. Prices are never supplied by the caller.
type PlaceOrderInput struct {
	CustomerID      uuid.UUID
	ShippingAddress string
	Notes           string
	Items           []OrderLineInput
}

// OrderService places orders and drives their lifecycle
type OrderService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Pagination) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	Reconcile(ctx context.Context, id uuid.UUID) (order *domain.Order, changed bool, err error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type orderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	logger       *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// validateLines rejects empty orders, quantities below one and repeated products
func validateLines(lines []OrderLineInput) error {
	if len(lines) == 0 {
		return domain.ErrEmptyOrder
	}

	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return domain.ErrInvalidQuantity
		}
		if _, dup := seen[line.ProductID]; dup {
			return domain.ErrDuplicateOrderItem
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

// PlaceOrder reserves stock and stores the order atomically. An empty shipping
// address defaults to the customer's address. The total is computed from the
// captured unit prices.
func (s *orderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	shipping := strings.TrimSpace(input.ShippingAddress)
	if shipping == "" {
		shipping = customer.Address
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Status:          domain.OrderStatusActive,
		PlacedAt:        now,
		ShippingAddress: shipping,
		Notes:           input.Notes,
		UpdatedAt:       now,
	}
	for _, line := range input.Items {
		order.Items = append(order.Items, &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	if err := s.orderRepo.Place(ctx, order); err != nil {
		s.logger.Warn("Order rejected",
			zap.String("customer_id", customer.ID.String()),
			zap.Int("lines", len(order.Items)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", customer.ID.String()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("units", order.ItemCount()),
	)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Pagination) ([]*domain.Order, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.ErrInvalidOrderStatus
	}

	orders, total, err := s.orderRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus applies a lifecycle transition. Cancelling returns the ordered
// quantities to stock in the same transaction.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidOrderStatus
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrStatusTransition, order.Status, status)
	}

	restock := status == domain.OrderStatusCancelled
	if err := s.orderRepo.UpdateStatus(ctx, id, order.Status, status, restock); err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
		zap.Bool("restocked", restock),
	)

	return s.orderRepo.FindByID(ctx, id)
}

// Reconcile recomputes the stored total from the order lines and persists it
// when it drifted
func (s *orderService) Reconcile(ctx context.Context, id uuid.UUID) (*domain.Order, bool, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	computed := order.TotalFromItems()
	if computed.Equal(order.TotalAmount) {
		return order, false, nil
	}

	if err := s.orderRepo.UpdateTotal(ctx, id, computed); err != nil {
		return nil, false, err
	}

	s.logger.Warn("Order total reconciled",
		zap.String("order_id", id.String()),
		zap.String("stored", order.TotalAmount.StringFixed(2)),
		zap.String("computed", computed.StringFixed(2)),
	)

	order.TotalAmount = computed
	return order, true, nil
}

// DeleteOrder removes an order and its lines without touching stock
func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.orderRepo.Delete(ctx, id)
}
