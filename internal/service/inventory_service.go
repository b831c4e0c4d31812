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

// InventoryInput carries the writable inventory level fields. Nil thresholds
// fall back to the defaults on create and are left unchanged on update.
type InventoryInput struct {
	ProductID     uuid.UUID
	CurrentStock  int
	MinStockLevel *int
	MaxStockLevel *int
	Location      string
}

// InventoryService manages per-product stock thresholds
type InventoryService interface {
	CreateLevel(ctx context.Context, input InventoryInput) (*domain.InventoryLevel, error)
	UpdateLevel(ctx context.Context, id uuid.UUID, input InventoryInput) (*domain.InventoryLevel, error)
	DeleteLevel(ctx context.Context, id uuid.UUID) error
	GetLevel(ctx context.Context, id uuid.UUID) (*domain.InventoryLevel, error)
	ListLevels(ctx context.Context, status domain.StockStatus, page repository.Pagination) ([]*domain.InventoryLevel, int, error)
	Summary(ctx context.Context) (*domain.InventorySummary, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService(inventoryRepo repository.InventoryRepository) InventoryService {
	return &inventoryService{inventoryRepo: inventoryRepo}
}

// CreateLevel stores thresholds for a product that has none yet
func (s *inventoryService) CreateLevel(ctx context.Context, input InventoryInput) (*domain.InventoryLevel, error) {
	level := &domain.InventoryLevel{
		ID:            uuid.New(),
		ProductID:     input.ProductID,
		CurrentStock:  input.CurrentStock,
		MinStockLevel: domain.DefaultMinStockLevel,
		MaxStockLevel: domain.DefaultMaxStockLevel,
		Location:      strings.TrimSpace(input.Location),
		UpdatedAt:     time.Now().UTC(),
	}
	if input.MinStockLevel != nil {
		level.MinStockLevel = *input.MinStockLevel
	}
	if input.MaxStockLevel != nil {
		level.MaxStockLevel = *input.MaxStockLevel
	}

	if err := level.Validate(); err != nil {
		return nil, err
	}

	if err := s.inventoryRepo.Create(ctx, level); err != nil {
		return nil, err
	}
	return level, nil
}

// UpdateLevel changes stock and thresholds; the product link is fixed
func (s *inventoryService) UpdateLevel(ctx context.Context, id uuid.UUID, input InventoryInput) (*domain.InventoryLevel, error) {
	level, err := s.inventoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	level.CurrentStock = input.CurrentStock
	if input.MinStockLevel != nil {
		level.MinStockLevel = *input.MinStockLevel
	}
	if input.MaxStockLevel != nil {
		level.MaxStockLevel = *input.MaxStockLevel
	}
	level.Location = strings.TrimSpace(input.Location)
	level.UpdatedAt = time.Now().UTC()

	if err := level.Validate(); err != nil {
		return nil, err
	}

	if err := s.inventoryRepo.Update(ctx, level); err != nil {
		return nil, err
	}
	return level, nil
}

func (s *inventoryService) DeleteLevel(ctx context.Context, id uuid.UUID) error {
	return s.inventoryRepo.Delete(ctx, id)
}

func (s *inventoryService) GetLevel(ctx context.Context, id uuid.UUID) (*domain.InventoryLevel, error) {
	return s.inventoryRepo.FindByID(ctx, id)
}

// ListLevels lists levels, optionally only those with the given derived status
func (s *inventoryService) ListLevels(ctx context.Context, status domain.StockStatus, page repository.Pagination) ([]*domain.InventoryLevel, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.ErrInvalidStockStatus
	}

	levels, total, err := s.inventoryRepo.List(ctx, repository.InventoryFilter{Status: status}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory levels: %w", err)
	}
	return levels, total, nil
}

func (s *inventoryService) Summary(ctx context.Context) (*domain.InventorySummary, error) {
	summary, err := s.inventoryRepo.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize inventory: %w", err)
	}
	return summary, nil
}
