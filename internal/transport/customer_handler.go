package transport

import (
	"net/http"

	"warehouse/internal/middleware"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CustomerRequest represents the create and update customer payload
type CustomerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"max=20"`
	Address   string `json:"address" validate:"max=1000"`
}

func (req CustomerRequest) input() service.CustomerInput {
	return service.CustomerInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	}
}

// CustomerHandler handles HTTP requests for customers
type CustomerHandler struct {
	customerService service.CustomerService
	logger          *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		logger:          logger,
	}
}

// RegisterRoutes registers all customer routes
func (h *CustomerHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/customers", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdminForWrites(h.logger))

		r.Get("/", h.ListCustomers)
		r.Post("/", h.CreateCustomer)
		r.Get("/{id}", h.GetCustomer)
		r.Put("/{id}", h.UpdateCustomer)
		r.Delete("/{id}", h.DeleteCustomer)
	})
}

// ListCustomers lists customers with search, sorting and pagination
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := repository.CustomerFilter{
		Search: r.URL.Query().Get("search"),
		SortBy: r.URL.Query().Get("sort_by"),
	}

	customers, total, err := h.customerService.ListCustomers(r.Context(), filter, page)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list customers")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newListResponse(customers, page, total))
}

// GetCustomer returns one customer
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get customer")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// CreateCustomer registers a customer
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	customer, err := h.customerService.CreateCustomer(r.Context(), req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "create customer")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, customer)
}

// UpdateCustomer replaces the writable fields of a customer
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CustomerRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	customer, err := h.customerService.UpdateCustomer(r.Context(), id, req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "update customer")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// DeleteCustomer removes a customer that has no orders
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.customerService.DeleteCustomer(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err, "delete customer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
