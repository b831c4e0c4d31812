package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/middleware"
	"warehouse/internal/repository"
	"warehouse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// Mock repositories backing a real AuthService

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, user := range m.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

type mockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, token := range m.tokens {
		if token.UserID == userID && !token.Revoked {
			token.Revoked = true
			n++
		}
	}
	return n, nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, token := range m.tokens {
		if token.ExpiresAt.Before(before) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

// Stub services. Each unset func falls back to an empty success.

type stubCatalogService struct {
	create     func(service.ProductInput) (*domain.Product, error)
	update     func(uuid.UUID, service.ProductInput) (*domain.Product, error)
	delete     func(uuid.UUID) error
	get        func(uuid.UUID) (*domain.Product, error)
	list       func(repository.ProductFilter, repository.Pagination) ([]*domain.Product, int, error)
	lowStock   func(int) ([]*domain.Product, error)
	categories func() ([]*domain.CategorySummary, error)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	if s.create == nil {
		return &domain.Product{ID: uuid.New(), Name: input.Name, Price: input.Price}, nil
	}
	return s.create(input)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	if s.update == nil {
		return &domain.Product{ID: id, Name: input.Name, Price: input.Price}, nil
	}
	return s.update(id, input)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if s.delete == nil {
		return nil
	}
	return s.delete(id)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if s.get == nil {
		return &domain.Product{ID: id}, nil
	}
	return s.get(id)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page repository.Pagination) ([]*domain.Product, int, error) {
	if s.list == nil {
		return []*domain.Product{}, 0, nil
	}
	return s.list(filter, page)
}

func (s *stubCatalogService) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	if s.lowStock == nil {
		return []*domain.Product{}, nil
	}
	return s.lowStock(threshold)
}

func (s *stubCatalogService) Categories(ctx context.Context) ([]*domain.CategorySummary, error) {
	if s.categories == nil {
		return []*domain.CategorySummary{}, nil
	}
	return s.categories()
}

type stubCustomerService struct {
	create func(service.CustomerInput) (*domain.Customer, error)
	delete func(uuid.UUID) error
	get    func(uuid.UUID) (*domain.Customer, error)
	list   func(repository.CustomerFilter, repository.Pagination) ([]*domain.Customer, int, error)
}

func (s *stubCustomerService) CreateCustomer(ctx context.Context, input service.CustomerInput) (*domain.Customer, error) {
	if s.create == nil {
		return &domain.Customer{ID: uuid.New(), Email: input.Email}, nil
	}
	return s.create(input)
}

func (s *stubCustomerService) UpdateCustomer(ctx context.Context, id uuid.UUID, input service.CustomerInput) (*domain.Customer, error) {
	return &domain.Customer{ID: id, Email: input.Email}, nil
}

func (s *stubCustomerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if s.delete == nil {
		return nil
	}
	return s.delete(id)
}

func (s *stubCustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if s.get == nil {
		return &domain.Customer{ID: id}, nil
	}
	return s.get(id)
}

func (s *stubCustomerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter, page repository.Pagination) ([]*domain.Customer, int, error) {
	if s.list == nil {
		return []*domain.Customer{}, 0, nil
	}
	return s.list(filter, page)
}

type stubOrderService struct {
	place        func(service.PlaceOrderInput) (*domain.Order, error)
	get          func(uuid.UUID) (*domain.Order, error)
	list         func(repository.OrderFilter, repository.Pagination) ([]*domain.Order, int, error)
	updateStatus func(uuid.UUID, domain.OrderStatus) (*domain.Order, error)
	reconcile    func(uuid.UUID) (*domain.Order, bool, error)
	delete       func(uuid.UUID) error
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, input service.PlaceOrderInput) (*domain.Order, error) {
	if s.place == nil {
		return &domain.Order{ID: uuid.New(), CustomerID: input.CustomerID, Status: domain.OrderStatusActive}, nil
	}
	return s.place(input)
}

func (s *stubOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.get == nil {
		return &domain.Order{ID: id}, nil
	}
	return s.get(id)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page repository.Pagination) ([]*domain.Order, int, error) {
	if s.list == nil {
		return []*domain.Order{}, 0, nil
	}
	return s.list(filter, page)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if s.updateStatus == nil {
		return &domain.Order{ID: id, Status: status}, nil
	}
	return s.updateStatus(id, status)
}

func (s *stubOrderService) Reconcile(ctx context.Context, id uuid.UUID) (*domain.Order, bool, error) {
	if s.reconcile == nil {
		return &domain.Order{ID: id}, false, nil
	}
	return s.reconcile(id)
}

func (s *stubOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if s.delete == nil {
		return nil
	}
	return s.delete(id)
}

type stubInventoryService struct {
	create  func(service.InventoryInput) (*domain.InventoryLevel, error)
	update  func(uuid.UUID, service.InventoryInput) (*domain.InventoryLevel, error)
	list    func(domain.StockStatus, repository.Pagination) ([]*domain.InventoryLevel, int, error)
	summary func() (*domain.InventorySummary, error)
}

func (s *stubInventoryService) CreateLevel(ctx context.Context, input service.InventoryInput) (*domain.InventoryLevel, error) {
	if s.create == nil {
		return &domain.InventoryLevel{ID: uuid.New(), ProductID: input.ProductID}, nil
	}
	return s.create(input)
}

func (s *stubInventoryService) UpdateLevel(ctx context.Context, id uuid.UUID, input service.InventoryInput) (*domain.InventoryLevel, error) {
	if s.update == nil {
		return &domain.InventoryLevel{ID: id, CurrentStock: input.CurrentStock}, nil
	}
	return s.update(id, input)
}

func (s *stubInventoryService) DeleteLevel(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubInventoryService) GetLevel(ctx context.Context, id uuid.UUID) (*domain.InventoryLevel, error) {
	return &domain.InventoryLevel{ID: id}, nil
}

func (s *stubInventoryService) ListLevels(ctx context.Context, status domain.StockStatus, page repository.Pagination) ([]*domain.InventoryLevel, int, error) {
	if s.list == nil {
		return []*domain.InventoryLevel{}, 0, nil
	}
	return s.list(status, page)
}

func (s *stubInventoryService) Summary(ctx context.Context) (*domain.InventorySummary, error) {
	if s.summary == nil {
		return &domain.InventorySummary{}, nil
	}
	return s.summary()
}

type stubReportService struct {
	dashboard func(int) (*domain.DashboardStats, error)
	sales     func() (*domain.SalesReport, error)
}

func (s *stubReportService) Dashboard(ctx context.Context, threshold int) (*domain.DashboardStats, error) {
	if s.dashboard == nil {
		return &domain.DashboardStats{LowStockThreshold: threshold}, nil
	}
	return s.dashboard(threshold)
}

func (s *stubReportService) Sales(ctx context.Context) (*domain.SalesReport, error) {
	if s.sales == nil {
		return &domain.SalesReport{}, nil
	}
	return s.sales()
}

// Router helpers

type routeRegistrar interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

func newTestRouter(handlers ...routeRegistrar) http.Handler {
	r := chi.NewRouter()
	auth := middleware.AuthMiddleware(testSecret, zap.NewNop())
	for _, h := range handlers {
		h.RegisterRoutes(r, auth)
	}
	return r
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tokenString
}

// do sends a request with an optional JSON body as a user with role; an empty role sends no token
func do(t *testing.T, h http.Handler, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}
