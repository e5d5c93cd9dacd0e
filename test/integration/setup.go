package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"threadloom/internal/database"
	"threadloom/internal/model"
	"threadloom/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the migrated schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	if err := database.Migrate(connStr, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr, &database.PoolConfig{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SetupTestRedis starts a Redis container and returns a connected client.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return client
}

// Catalogue is the seeded category and its products.
type Catalogue struct {
	Category model.Category
	Shirt    model.Product // 10.00
	Scarf    model.Product // 5.00
	Hidden   model.Product // unlisted
}

// SeedCatalogue inserts one category with two listed products and one
// unlisted product.
func SeedCatalogue(t *testing.T, pool *pgxpool.Pool) Catalogue {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()
	now := time.Now().UTC()

	cat := Catalogue{Category: model.Category{ID: uuid.New(), Name: "Shirts", CreatedAt: now}}
	if err := repository.NewCategoryRepository(pool, logger).Create(ctx, &cat.Category); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	products := repository.NewProductRepository(pool, logger)
	seed := func(name string, price float64, unlisted bool) model.Product {
		p := model.Product{
			ID:          uuid.New(),
			Name:        name,
			Description: name + " woven by hand",
			Price:       price,
			CategoryID:  cat.Category.ID,
			IsUnlisted:  unlisted,
			Stock:       20,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := products.Create(ctx, &p); err != nil {
			t.Fatalf("failed to seed product %s: %v", name, err)
		}
		return p
	}

	cat.Shirt = seed("Linen Shirt", 10.00, false)
	cat.Scarf = seed("Wool Scarf", 5.00, false)
	cat.Hidden = seed("Retired Tunic", 15.00, true)
	return cat
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"order_items", "orders", "cart_items", "wishlist_items",
		"addresses", "coupons", "products", "categories", "users",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
