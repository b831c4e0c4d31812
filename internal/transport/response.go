package transport

import (
	"errors"
	"net/http"
	"strconv"

	"warehouse/internal/domain"
	"warehouse/internal/middleware"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListResponse wraps a page of results
type ListResponse struct {
	Data       interface{} `json:"data"`
	Pagination domain.Page `json:"pagination"`
	TotalPages int         `json:"total_pages"`
}

func newListResponse(data interface{}, page repository.Pagination, total int) ListResponse {
	p := domain.Page{Page: page.Page, PageSize: page.PageSize, Total: total}
	return ListResponse{Data: data, Pagination: p, TotalPages: p.TotalPages()}
}

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		repository.ErrProductNotFound,
		repository.ErrCustomerNotFound,
		repository.ErrOrderNotFound,
		repository.ErrInventoryLevelNotFound,
		repository.ErrUserNotFound,
	}},
	{http.StatusConflict, []error{
		repository.ErrProductAlreadyExists,
		repository.ErrCustomerAlreadyExists,
		repository.ErrCustomerHasOrders,
		repository.ErrInventoryLevelAlreadyExists,
		repository.ErrOrderStatusConflict,
		repository.ErrUserAlreadyExists,
		domain.ErrInsufficientStock,
		domain.ErrStatusTransition,
	}},
	{http.StatusBadRequest, []error{
		repository.ErrInvalidProduct,
		repository.ErrInvalidInventoryLevel,
		domain.ErrNegativePrice,
		domain.ErrNegativeStock,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidOrderStatus,
		domain.ErrInvalidStockLevels,
		domain.ErrInvalidStockStatus,
		domain.ErrEmptyOrder,
		domain.ErrDuplicateOrderItem,
		service.ErrInvalidThreshold,
		service.ErrInvalidRole,
	}},
}

// statusFor maps a service error to its HTTP status; unknown errors are 500
func statusFor(err error) int {
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with its mapped status. Internal errors are
// logged and their cause hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Failed to "+action, zap.Error(err), zap.String("path", r.URL.Path))
		middleware.RespondWithError(w, status, "failed to "+action)
		return
	}
	logger.Debug("Request refused", zap.String("action", action), zap.Error(err))
	middleware.RespondWithError(w, status, err.Error())
}

// decodeRequest decodes and validates a JSON body, writing the 400 response on failure
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if middleware.IsValidationError(err) {
			middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &v, nil
}

// parsePagination reads page and page_size, defaulting to the first page of DefaultPageSize
func parsePagination(r *http.Request) (repository.Pagination, error) {
	page := repository.Pagination{Page: 1, PageSize: repository.DefaultPageSize}

	if v, err := queryInt(r, "page"); err != nil {
		return page, err
	} else if v != nil {
		if *v < 1 {
			return page, errors.New("page must be at least 1")
		}
		page.Page = *v
	}

	if v, err := queryInt(r, "page_size"); err != nil {
		return page, err
	} else if v != nil {
		if *v < 1 || *v > repository.MaxPageSize {
			return page, errors.New("page_size must be between 1 and " + strconv.Itoa(repository.MaxPageSize))
		}
		page.PageSize = *v
	}

	return page, nil
}
