package transport

import (
	"net/http"
	"testing"

	"warehouse/internal/domain"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCustomerHandler_Create(t *testing.T) {
	var got service.CustomerInput
	customers := &stubCustomerService{
		create: func(in service.CustomerInput) (*domain.Customer, error) {
			got = in
			if in.Email == "taken@example.com" {
				return nil, repository.ErrCustomerAlreadyExists
			}
			return &domain.Customer{ID: uuid.New(), Email: in.Email}, nil
		},
	}
	router := newTestRouter(NewCustomerHandler(customers, zap.NewNop()))

	body := CustomerRequest{FirstName: "Ada", LastName: "Byron", Email: "ada@example.com", Phone: "+44 20 0000"}
	w := do(t, router, http.MethodPost, "/api/customers", domain.RoleAdmin, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ada@example.com", got.Email)

	body.Email = "taken@example.com"
	w = do(t, router, http.MethodPost, "/api/customers", domain.RoleAdmin, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	body.Email = "not-an-email"
	w = do(t, router, http.MethodPost, "/api/customers", domain.RoleAdmin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body.Email = "ada@example.com"
	body.Phone = "+44 20 0000 0000 0000 0000"
	w = do(t, router, http.MethodPost, "/api/customers", domain.RoleAdmin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerHandler_List(t *testing.T) {
	var gotFilter repository.CustomerFilter
	var gotPage repository.Pagination
	customers := &stubCustomerService{
		list: func(f repository.CustomerFilter, p repository.Pagination) ([]*domain.Customer, int, error) {
			gotFilter, gotPage = f, p
			return []*domain.Customer{}, 0, nil
		},
	}
	router := newTestRouter(NewCustomerHandler(customers, zap.NewNop()))

	w := do(t, router, http.MethodGet, "/api/customers?search=ada&sort_by=-email", domain.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.CustomerFilter{Search: "ada", SortBy: "-email"}, gotFilter)
	assert.Equal(t, repository.Pagination{Page: 1, PageSize: repository.DefaultPageSize}, gotPage)
}

func TestCustomerHandler_DeleteWithOrdersConflicts(t *testing.T) {
	customers := &stubCustomerService{
		delete: func(uuid.UUID) error { return repository.ErrCustomerHasOrders },
	}
	router := newTestRouter(NewCustomerHandler(customers, zap.NewNop()))

	w := do(t, router, http.MethodDelete, "/api/customers/"+uuid.New().String(), domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
