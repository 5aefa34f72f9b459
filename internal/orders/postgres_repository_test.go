package orders

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewPostgresRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))

	cleanup := func() {
		_ = repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(userID, key string) *domain.Order {
	d := decimal.RequireFromString
	return &domain.Order{
		ID:             uuid.New(),
		UserID:         userID,
		IdempotencyKey: key,
		Status:         domain.OrderStatusConfirmed,
		Currency:       "INR",
		Items: []domain.OrderItem{
			{
				ProductID:   "p1",
				ProductName: "Classic Runner",
				Size:        "M",
				Color:       "Black",
				Quantity:    2,
				UnitPrice:   d("1000"),
				LineTotal:   d("2000"),
			},
		},
		Breakdown: domain.Breakdown{
			ItemsSubtotal:  d("2000"),
			ShippingFee:    d("1000"),
			TaxAmount:      d("360.00"),
			DiscountAmount: d("0"),
			GrandTotal:     d("3360.00"),
		},
		ShippingAddress: domain.ShippingAddress{
			FullName:   "Asha Rao",
			Line1:      "12 MG Road",
			City:       "Bengaluru",
			PostalCode: "560001",
			Country:    "IN",
		},
		PaymentMethod: domain.PaymentMethodCard,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("user-123", "key-1")

	require.NoError(t, repo.CreateOrder(ctx, order))
	assert.False(t, order.CreatedAt.IsZero())

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, order.UserID, fetched.UserID)
	assert.Equal(t, order.IdempotencyKey, fetched.IdempotencyKey)
	assert.Equal(t, order.Status, fetched.Status)
	assert.Equal(t, order.PaymentMethod, fetched.PaymentMethod)
	assert.Equal(t, order.ShippingAddress, fetched.ShippingAddress)
	assert.True(t, order.Breakdown.Equal(fetched.Breakdown))
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "p1", fetched.Items[0].ProductID)
	assert.True(t, decimal.NewFromInt(2000).Equal(fetched.Items[0].LineTotal))
}

func TestCreateOrder_KeepsCallerTimestamps(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	// far from the database clock on purpose
	placedAt := time.Date(2020, 1, 2, 3, 4, 5, 678000000, time.UTC)
	order := newTestOrder("user-123", "key-ts")
	order.CreatedAt = placedAt
	order.UpdatedAt = placedAt

	require.NoError(t, repo.CreateOrder(ctx, order))
	assert.True(t, placedAt.Equal(order.CreatedAt))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, placedAt.Equal(fetched.CreatedAt), "got %s", fetched.CreatedAt)
	assert.True(t, placedAt.Equal(fetched.UpdatedAt))
}

func TestCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-123", "key-1")))

	err := repo.CreateOrder(ctx, newTestOrder("user-123", "key-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateOrder)

	// the same key from another user is a different order
	assert.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-456", "key-1")))
}

func TestGetOrderByIdempotencyKey(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("user-123", "key-1")
	require.NoError(t, repo.CreateOrder(ctx, order))

	fetched, err := repo.GetOrderByIdempotencyKey(ctx, "user-123", "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)

	_, err = repo.GetOrderByIdempotencyKey(ctx, "user-456", "key-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListOrdersByUserID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := "user-list-test"

	order1 := newTestOrder(userID, "key-1")
	require.NoError(t, repo.CreateOrder(ctx, order1))

	time.Sleep(10 * time.Millisecond)

	order2 := newTestOrder(userID, "key-2")
	require.NoError(t, repo.CreateOrder(ctx, order2))

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("someone-else", "key-3")))

	orders, err := repo.ListOrdersByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, order2.ID, orders[0].ID)
	assert.Equal(t, order1.ID, orders[1].ID)
}

func TestListOrdersByUserID_Empty(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	orders, err := repo.ListOrdersByUserID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}
