package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"warehouse/internal/domain"
	"warehouse/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// mockUserRepository keys users by email
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	count := 0
	for _, user := range m.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
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
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
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
	var n int64
	for key, token := range m.tokens {
		if token.ExpiresAt.Before(before) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

// mockStore backs the catalog, customer, order and inventory mocks so that
// order placement can move stock the way the database does
type mockStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*domain.Product
	customers map[uuid.UUID]*domain.Customer
	orders    map[uuid.UUID]*domain.Order
	levels    map[uuid.UUID]*domain.InventoryLevel
}

func newMockStore() *mockStore {
	return &mockStore{
		products:  make(map[uuid.UUID]*domain.Product),
		customers: make(map[uuid.UUID]*domain.Customer),
		orders:    make(map[uuid.UUID]*domain.Order),
		levels:    make(map[uuid.UUID]*domain.InventoryLevel),
	}
}

func (s *mockStore) addProduct(name, price string, stock int) *domain.Product {
	p := &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	s.products[p.ID] = p
	return p
}

func (s *mockStore) addCustomer(email string) *domain.Customer {
	c := &domain.Customer{ID: uuid.New(), FirstName: "Test", LastName: "Customer", Email: email, Address: "1 Dock Road"}
	s.customers[c.ID] = c
	return c
}

type mockProductRepository struct{ *mockStore }

func (m mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if product.SKU != "" && p.SKU == product.SKU {
			return repository.ErrProductAlreadyExists
		}
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m mockProductRepository) List(ctx context.Context, filter repository.ProductFilter, page repository.Pagination) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := []*domain.Product{}
	for _, p := range m.products {
		if filter.Category == "" || p.Category == filter.Category {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, len(products), nil
}

func (m mockProductRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := []*domain.Product{}
	for _, p := range m.products {
		if p.IsLowStock(threshold) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].StockQuantity != products[j].StockQuantity {
			return products[i].StockQuantity < products[j].StockQuantity
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

type mockCategoryRepository struct{ *mockStore }

func (m mockCategoryRepository) List(ctx context.Context) ([]*domain.CategorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := map[string]*domain.CategorySummary{}
	for _, p := range m.products {
		if p.Category == "" {
			continue
		}
		c, ok := byName[p.Category]
		if !ok {
			c = &domain.CategorySummary{Name: p.Category}
			byName[p.Category] = c
		}
		c.ProductCount++
		c.TotalStock += p.StockQuantity
		c.StockValue = c.StockValue.Add(p.StockValue())
	}
	out := []*domain.CategorySummary{}
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockCustomerRepository struct{ *mockStore }

func (m mockCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Email == customer.Email {
			return repository.ErrCustomerAlreadyExists
		}
	}
	m.customers[customer.ID] = customer
	return nil
}

func (m mockCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customer.ID]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, c := range m.customers {
		if c.ID != customer.ID && c.Email == customer.Email {
			return repository.ErrCustomerAlreadyExists
		}
	}
	m.customers[customer.ID] = customer
	return nil
}

func (m mockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[id]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, o := range m.orders {
		if o.CustomerID == id {
			return repository.ErrCustomerHasOrders
		}
	}
	delete(m.customers, id)
	return nil
}

func (m mockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return c, nil
}

func (m mockCustomerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (m mockCustomerRepository) List(ctx context.Context, filter repository.CustomerFilter, page repository.Pagination) ([]*domain.Customer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customers := []*domain.Customer{}
	for _, c := range m.customers {
		customers = append(customers, c)
	}
	return customers, len(customers), nil
}

type mockOrderRepository struct{ *mockStore }

func (m mockOrderRepository) Place(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[order.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, item := range order.Items {
		p, ok := m.products[item.ProductID]
		if !ok {
			return repository.ErrProductNotFound
		}
		if p.StockQuantity < item.Quantity {
			return domain.ErrInsufficientStock
		}
	}
	for _, item := range order.Items {
		p := m.products[item.ProductID]
		p.StockQuantity -= item.Quantity
		item.Price = p.Price
		for _, l := range m.levels {
			if l.ProductID == p.ID {
				l.CurrentStock -= item.Quantity
				if l.CurrentStock < 0 {
					l.CurrentStock = 0
				}
			}
		}
	}
	order.TotalAmount = order.TotalFromItems()
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter, page repository.Pagination) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := []*domain.Order{}
	for _, o := range m.orders {
		if filter.Status == "" || o.Status == filter.Status {
			orders = append(orders, o)
		}
	}
	return orders, len(orders), nil
}

func (m mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, restock bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrOrderStatusConflict
	}
	o.Status = to
	if restock {
		for _, item := range o.Items {
			if p, ok := m.products[item.ProductID]; ok {
				p.StockQuantity += item.Quantity
			}
		}
	}
	return nil
}

func (m mockOrderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.TotalAmount = total
	return nil
}

func (m mockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

type mockInventoryRepository struct{ *mockStore }

func (m mockInventoryRepository) Create(ctx context.Context, level *domain.InventoryLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[level.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	for _, l := range m.levels {
		if l.ProductID == level.ProductID {
			return repository.ErrInventoryLevelAlreadyExists
		}
	}
	m.levels[level.ID] = level
	return nil
}

func (m mockInventoryRepository) Update(ctx context.Context, level *domain.InventoryLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.levels[level.ID]; !ok {
		return repository.ErrInventoryLevelNotFound
	}
	m.levels[level.ID] = level
	return nil
}

func (m mockInventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.levels[id]; !ok {
		return repository.ErrInventoryLevelNotFound
	}
	delete(m.levels, id)
	return nil
}

func (m mockInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.InventoryLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.levels[id]
	if !ok {
		return nil, repository.ErrInventoryLevelNotFound
	}
	copied := *l
	return &copied, nil
}

func (m mockInventoryRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*domain.InventoryLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.levels {
		if l.ProductID == productID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, repository.ErrInventoryLevelNotFound
}

func (m mockInventoryRepository) List(ctx context.Context, filter repository.InventoryFilter, page repository.Pagination) ([]*domain.InventoryLevel, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	levels := []*domain.InventoryLevel{}
	for _, l := range m.levels {
		if filter.Status == "" || l.StockStatus() == filter.Status {
			levels = append(levels, l)
		}
	}
	return levels, len(levels), nil
}

func (m mockInventoryRepository) Summary(ctx context.Context) (*domain.InventorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &domain.InventorySummary{}
	for _, l := range m.levels {
		summary.TotalLevels++
		switch l.StockStatus() {
		case domain.StockStatusLow:
			summary.Low++
		case domain.StockStatusNormal:
			summary.Normal++
		case domain.StockStatusHigh:
			summary.High++
		}
	}
	return summary, nil
}

// mockStatsRepository computes aggregates in memory the way the SQL does
type mockStatsRepository struct{ *mockStore }

func (m mockStatsRepository) Totals(ctx context.Context) (*repository.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := &repository.Totals{
		Products:  len(m.products),
		Customers: len(m.customers),
		Orders:    len(m.orders),
	}
	priceSum := decimal.Zero
	for _, p := range m.products {
		priceSum = priceSum.Add(p.Price)
		totals.StockValue = totals.StockValue.Add(p.StockValue())
	}
	for _, o := range m.orders {
		totals.OrderSum = totals.OrderSum.Add(o.TotalAmount)
	}
	if len(m.products) > 0 {
		totals.AverageProductPrice = priceSum.Div(decimal.NewFromInt(int64(len(m.products))))
	}
	if len(m.orders) > 0 {
		totals.OrderAverage = totals.OrderSum.Div(decimal.NewFromInt(int64(len(m.orders))))
	}
	return totals, nil
}

func (m mockStatsRepository) OrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[domain.OrderStatus]int{}
	for _, status := range domain.OrderStatuses {
		counts[status] = 0
	}
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}
