package transport

import (
	"errors"
	"net/http"

	"warehouse/internal/domain"
	"warehouse/internal/middleware"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateInventoryRequest represents the inventory level update payload.
// Omitted thresholds stay unchanged.
type UpdateInventoryRequest struct {
	CurrentStock  int    `json:"current_stock" validate:"gte=0"`
	MinStockLevel *int   `json:"min_stock_level" validate:"omitempty,gte=0"`
	MaxStockLevel *int   `json:"max_stock_level" validate:"omitempty,gte=0"`
	Location      string `json:"location" validate:"max=255"`
}

// CreateInventoryRequest represents the inventory level creation payload.
// Omitted thresholds take the defaults.
type CreateInventoryRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	UpdateInventoryRequest
}

func (req UpdateInventoryRequest) input(productID uuid.UUID) service.InventoryInput {
	return service.InventoryInput{
		ProductID:     productID,
		CurrentStock:  req.CurrentStock,
		MinStockLevel: req.MinStockLevel,
		MaxStockLevel: req.MaxStockLevel,
		Location:      req.Location,
	}
}

// InventoryHandler handles HTTP requests for inventory levels
type InventoryHandler struct {
	inventoryService service.InventoryService
	logger           *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdminForWrites(h.logger))

		r.Get("/", h.ListLevels)
		r.Post("/", h.CreateLevel)
		r.Get("/summary", h.Summary)
		r.Get("/{id}", h.GetLevel)
		r.Put("/{id}", h.UpdateLevel)
		r.Delete("/{id}", h.DeleteLevel)
	})
}

// ListLevels lists inventory levels, optionally by stock status
func (h *InventoryHandler) ListLevels(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := domain.StockStatus(r.URL.Query().Get("status"))
	levels, total, err := h.inventoryService.ListLevels(r.Context(), status, page)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list inventory levels")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newListResponse(levels, page, total))
}

// Summary counts inventory levels per stock status
func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.inventoryService.Summary(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "summarize inventory")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// GetLevel returns one inventory level
func (h *InventoryHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	level, err := h.inventoryService.GetLevel(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get inventory level")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, level)
}

// CreateLevel tracks thresholds for a product
func (h *InventoryHandler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	var req CreateInventoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	level, err := h.inventoryService.CreateLevel(r.Context(), req.input(uuid.MustParse(req.ProductID)))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondServiceError(w, r, h.logger, err, "create inventory level")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, level)
}

// UpdateLevel replaces the stock figures of an inventory level
func (h *InventoryHandler) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateInventoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	level, err := h.inventoryService.UpdateLevel(r.Context(), id, req.input(uuid.Nil))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update inventory level")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, level)
}

// DeleteLevel stops tracking a product's thresholds
func (h *InventoryHandler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteLevel(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete inventory level")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
