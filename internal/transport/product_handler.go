package transport

import (
	"fmt"
	"net/http"
	"time"

	"warehouse/internal/export"
	"warehouse/internal/middleware"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the create and update product payload
type ProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description" validate:"max=5000"`
	Price         *decimal.Decimal `json:"price" validate:"required,gte=0,lte=99999999.99"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
	Category      string           `json:"category" validate:"max=100"`
	SKU           string           `json:"sku" validate:"max=50"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: req.StockQuantity,
		Category:      req.Category,
		SKU:           req.SKU,
	}
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	catalogService    service.CatalogService
	lowStockThreshold int
	logger            *zap.Logger
}

// NewProductHandler creates a new ProductHandler. lowStockThreshold applies
// when a low-stock request names no threshold.
func NewProductHandler(catalogService service.CatalogService, lowStockThreshold int, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService:    catalogService,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdminForWrites(h.logger))

		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/low-stock", h.LowStock)
		r.Get("/categories", h.Categories)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

func parseProductFilter(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		SortBy:   q.Get("sort_by"),
	}

	for name, dst := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		if raw := q.Get(name); raw != "" {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return filter, fmt.Errorf("%s must be a number", name)
			}
			*dst = &d
		}
	}

	var err error
	if filter.MinStock, err = queryInt(r, "min_stock"); err != nil {
		return filter, err
	}
	if filter.MaxStock, err = queryInt(r, "max_stock"); err != nil {
		return filter, err
	}

	return filter, nil
}

// ListProducts lists products, or exports the whole filtered list when format is set
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if raw := r.URL.Query().Get("format"); raw != "" {
		format, ok := export.ParseFormat(raw)
		if !ok {
			middleware.RespondWithError(w, http.StatusBadRequest, "format must be csv or xlsx")
			return
		}
		h.exportProducts(w, r, filter, format)
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, total, err := h.catalogService.ListProducts(r.Context(), filter, page)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newListResponse(products, page, total))
}

func (h *ProductHandler) exportProducts(w http.ResponseWriter, r *http.Request, filter repository.ProductFilter, format export.Format) {
	products, _, err := h.catalogService.ListProducts(r.Context(), filter, repository.Pagination{})
	if err != nil {
		respondServiceError(w, r, h.logger, err, "export products")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename("products", time.Now())))
	w.WriteHeader(http.StatusOK)

	if err := export.WriteProducts(w, format, products); err != nil {
		// headers are already sent
		h.logger.Error("Failed to write product export", zap.String("format", string(format)), zap.Error(err))
		return
	}

	h.logger.Info("Products exported", zap.String("format", string(format)), zap.Int("count", len(products)))
}

// LowStock lists products at or below a stock threshold
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.lowStockThreshold
	if v, err := queryInt(r, "threshold"); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	} else if v != nil {
		threshold = *v
	}

	products, err := h.catalogService.LowStock(r.Context(), threshold)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list low stock products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"threshold": threshold,
		"count":     len(products),
		"products":  products,
	})
}

// Categories summarizes products per category
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.Categories(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// GetProduct returns one product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct adds a product to the catalog
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct replaces the writable fields of a product
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product along with its order items and inventory level
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
