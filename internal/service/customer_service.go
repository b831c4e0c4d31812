package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/repository"

	"github.com/google/uuid"
)

// CustomerInput carries the writable customer fields
type CustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
}

// CustomerService manages customer records
type CustomerService interface {
	CreateCustomer(ctx context.Context, input CustomerInput) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input CustomerInput) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	ListCustomers(ctx context.Context, filter repository.CustomerFilter, page repository.Pagination) ([]*domain.Customer, int, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
}

// NewCustomerService creates a new instance of CustomerService
func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerService{customerRepo: customerRepo}
}

func (in CustomerInput) apply(customer *domain.Customer) {
	customer.FirstName = strings.TrimSpace(in.FirstName)
	customer.LastName = strings.TrimSpace(in.LastName)
	customer.Email = strings.ToLower(strings.TrimSpace(in.Email))
	customer.Phone = strings.TrimSpace(in.Phone)
	customer.Address = in.Address
}

// CreateCustomer stores a new customer; emails are compared case-insensitively
func (s *customerService) CreateCustomer(ctx context.Context, input CustomerInput) (*domain.Customer, error) {
	customer := &domain.Customer{ID: uuid.New(), CreatedAt: time.Now().UTC()}
	input.apply(customer)

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, input CustomerInput) (*domain.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.apply(customer)
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer fails with repository.ErrCustomerHasOrders while orders reference the customer
func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.customerRepo.Delete(ctx, id)
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.customerRepo.FindByID(ctx, id)
}

func (s *customerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter, page repository.Pagination) ([]*domain.Customer, int, error) {
	customers, total, err := s.customerRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, total, nil
}
