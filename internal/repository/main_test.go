package repository

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"warehouse/internal/database"
	"warehouse/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "warehouse"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(context.Background(), "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}

	if code != 0 {
		log.Fatalf("tests failed with code %d", code)
	}
}

// resetTables empties every table between tests
func resetTables(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(`TRUNCATE order_items, orders, inventory_levels, products, customers, refresh_tokens, users CASCADE`)
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newTestProduct(name string, price string, stock int) *domain.Product {
	return &domain.Product{
		ID:            uuid.New(),
		Name:          name,
		Description:   name + " description",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Category:      "General",
		CreatedAt:     now(),
		UpdatedAt:     now(),
	}
}

func newTestCustomer(email string) *domain.Customer {
	return &domain.Customer{
		ID:        uuid.New(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Phone:     "555-0100",
		Address:   "12 Analytical Row",
		CreatedAt: now(),
	}
}

func newTestOrder(customerID uuid.UUID, lines map[uuid.UUID]int) *domain.Order {
	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.OrderStatusActive,
		PlacedAt:   now(),
		UpdatedAt:  now(),
	}
	for productID, quantity := range lines {
		order.Items = append(order.Items, &domain.OrderItem{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  quantity,
		})
	}
	return order
}
