package transport

import (
	"errors"
	"net/http"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/middleware"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLineRequest requests a quantity of one product
type OrderLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// PlaceOrderRequest represents the order placement payload. Prices are taken
// from the catalog at placement time.
type PlaceOrderRequest struct {
	CustomerID      string             `json:"customer_id" validate:"required,uuid"`
	ShippingAddress string             `json:"shipping_address" validate:"max=1000"`
	Notes           string             `json:"notes" validate:"max=2000"`
	Items           []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateStatusRequest represents an order status change
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active processed completed cancelled"`
}

// ReconcileResponse reports whether a stored total was repaired
type ReconcileResponse struct {
	Order   *domain.Order `json:"order"`
	Changed bool          `json:"changed"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdminForWrites(h.logger))

		r.Get("/", h.ListOrders)
		r.Post("/", h.PlaceOrder)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/reconcile", h.Reconcile)
		r.Delete("/{id}", h.DeleteOrder)
	})
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain upper bound
// covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ListOrders lists orders with search, status and date filters
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := repository.OrderFilter{
		Search: q.Get("search"),
		Status: domain.OrderStatus(q.Get("status")),
		SortBy: q.Get("sort_by"),
	}

	if filter.DateFrom, err = parseDate(q.Get("date_from"), false); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD or RFC 3339")
		return
	}
	if filter.DateTo, err = parseDate(q.Get("date_to"), true); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD or RFC 3339")
		return
	}

	orders, total, err := h.orderService.ListOrders(r.Context(), filter, page)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newListResponse(orders, page, total))
}

// GetOrder returns an order with its items
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// PlaceOrder creates an order and reserves its stock
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	input := service.PlaceOrderInput{
		CustomerID:      uuid.MustParse(req.CustomerID),
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Items:           make([]service.OrderLineInput, len(req.Items)),
	}
	for i, item := range req.Items {
		input.Items[i] = service.OrderLineInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
		}
	}

	order, err := h.orderService.PlaceOrder(r.Context(), input)
	if err != nil {
		// references in the body are bad input, not missing resources
		if errors.Is(err, repository.ErrCustomerNotFound) || errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondServiceError(w, r, h.logger, err, "place order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// UpdateStatus moves an order through its lifecycle
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update order status")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Reconcile recomputes the stored total from the order items
func (h *OrderHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, changed, err := h.orderService.Reconcile(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "reconcile order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ReconcileResponse{Order: order, Changed: changed})
}

// DeleteOrder removes an order and its items
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
