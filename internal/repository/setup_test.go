package repository

import (
	"context"
	"testing"
	"time"

	"threadloom/internal/database"
	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL testcontainer with the migrated schema.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func seedUser(t *testing.T, pool *pgxpool.Pool, email, mobile string) model.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	u := model.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		Mobile:       mobile,
		PasswordHash: "hash",
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewUserRepository(pool, zerolog.Nop()).Create(context.Background(), &u))
	return u
}

func seedCategory(t *testing.T, pool *pgxpool.Pool, name string) model.Category {
	t.Helper()

	c := model.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, NewCategoryRepository(pool, zerolog.Nop()).Create(context.Background(), &c))
	return c
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, categoryID uuid.UUID, name string, price float64, createdAt time.Time) model.Product {
	t.Helper()

	p := model.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: name + " description",
		Price:       price,
		CategoryID:  categoryID,
		Stock:       10,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, NewProductRepository(pool, zerolog.Nop()).Create(context.Background(), &p))
	return p
}
