package repository

import (
	"context"
	"testing"
	"time"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	cat := seedCategory(t, pool, "Shirts")
	base := time.Now().UTC().Add(-time.Hour)
	a := seedProduct(t, pool, cat.ID, "Alpha", 30, base)
	b := seedProduct(t, pool, cat.ID, "Bravo", 10, base.Add(time.Minute))
	c := seedProduct(t, pool, cat.ID, "Charlie", 20, base.Add(2*time.Minute))
	hidden := seedProduct(t, pool, cat.ID, "Delta", 5, base.Add(3*time.Minute))
	require.NoError(t, repo.SetUnlisted(ctx, hidden.ID, true))

	tests := []struct {
		name     string
		filter   model.ProductFilter
		expected []uuid.UUID
	}{
		{
			name:     "Default newest first",
			filter:   model.ProductFilter{ListedOnly: true, Limit: 10},
			expected: []uuid.UUID{c.ID, b.ID, a.ID},
		},
		{
			name:     "Price ascending",
			filter:   model.ProductFilter{ListedOnly: true, Sort: model.SortPriceAsc, Limit: 10},
			expected: []uuid.UUID{b.ID, c.ID, a.ID},
		},
		{
			name:     "Price descending",
			filter:   model.ProductFilter{ListedOnly: true, Sort: model.SortPriceDesc, Limit: 10},
			expected: []uuid.UUID{a.ID, c.ID, b.ID},
		},
		{
			name:     "Name descending",
			filter:   model.ProductFilter{ListedOnly: true, Sort: model.SortNameDesc, Limit: 10},
			expected: []uuid.UUID{c.ID, b.ID, a.ID},
		},
		{
			name:     "Second page",
			filter:   model.ProductFilter{ListedOnly: true, Sort: model.SortNameAsc, Limit: 2, Offset: 2},
			expected: []uuid.UUID{c.ID},
		},
		{
			name:     "Including unlisted",
			filter:   model.ProductFilter{Sort: model.SortNameAsc, Limit: 10},
			expected: []uuid.UUID{a.ID, b.ID, c.ID, hidden.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]uuid.UUID, len(products))
			for i, p := range products {
				ids[i] = p.ID
				assert.Equal(t, "Shirts", p.CategoryName)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	listed, err := repo.Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, listed)

	all, err := repo.Count(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, all)
}

func TestProductRepository_UnlistedCategoryHidesProducts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewProductRepository(pool, zerolog.Nop())
	categories := NewCategoryRepository(pool, zerolog.Nop())

	cat := seedCategory(t, pool, "Hats")
	seedProduct(t, pool, cat.ID, "Cap", 12, time.Now().UTC())
	require.NoError(t, categories.SetUnlisted(ctx, cat.ID, true))

	products, err := repo.List(ctx, model.ProductFilter{ListedOnly: true, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, products)

	listedCategories, err := categories.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, listedCategories)
}

func TestProductRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	cat := seedCategory(t, pool, "Shirts")
	p := seedProduct(t, pool, cat.ID, "Oxford", 49.99, time.Now().UTC())

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Oxford", got.Name)
	assert.InDelta(t, 49.99, got.Price, 0.001)
	assert.Equal(t, cat.ID, got.CategoryID)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepository_GetByIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	cat := seedCategory(t, pool, "Shirts")
	a := seedProduct(t, pool, cat.ID, "A", 1, time.Now().UTC())
	b := seedProduct(t, pool, cat.ID, "B", 2, time.Now().UTC())

	products, err := repo.GetByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_CreateUnknownCategory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	now := time.Now().UTC()

	err := repo.Create(context.Background(), &model.Product{
		ID: uuid.New(), Name: "Orphan", Price: 1, CategoryID: uuid.New(), CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, model.ErrCategoryNotFound)
}

func TestProductRepository_Updates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	cat := seedCategory(t, pool, "Shirts")
	p := seedProduct(t, pool, cat.ID, "Oxford", 49.99, time.Now().UTC())

	require.NoError(t, repo.SetImageURL(ctx, p.ID, "/uploads/products/oxford.png"))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/oxford.png", got.ImageURL)

	assert.ErrorIs(t, repo.SetUnlisted(ctx, uuid.New(), true), model.ErrProductNotFound)
}

func TestCategoryRepository_DuplicateName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedCategory(t, pool, "Shirts")

	err := NewCategoryRepository(pool, zerolog.Nop()).Create(context.Background(), &model.Category{
		ID: uuid.New(), Name: "Shirts", CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, model.ErrCategoryExists)
}

func TestProductRepository_Offers(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	categories := NewCategoryRepository(pool, zerolog.Nop())
	ctx := context.Background()

	cat := seedCategory(t, pool, "Shirts")
	now := time.Now().UTC()
	oxford := seedProduct(t, pool, cat.ID, "Oxford", 50, now)
	linen := seedProduct(t, pool, cat.ID, "Linen", 40, now.Add(time.Minute))
	assert.Equal(t, 50.0, oxford.RegularPrice)

	require.NoError(t, categories.SetOffer(ctx, cat.ID, 10))
	require.NoError(t, repo.SetOffer(ctx, oxford.ID, 30))

	got, err := repo.GetByID(ctx, oxford.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50, got.RegularPrice, 0.001)
	assert.Equal(t, 30, got.OfferPercent)
	assert.Equal(t, 10, got.CategoryOffer)
	assert.InDelta(t, 35, got.Price, 0.001)

	got, err = repo.GetByID(ctx, linen.ID)
	require.NoError(t, err)
	assert.InDelta(t, 36, got.Price, 0.001)

	// 35 for Oxford sorts before 36 for Linen despite the higher list price.
	products, err := repo.List(ctx, model.ProductFilter{ListedOnly: true, Sort: model.SortPriceAsc, Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, oxford.ID, products[0].ID)

	require.NoError(t, repo.SetOffer(ctx, oxford.ID, 0))
	got, err = repo.GetByID(ctx, oxford.ID)
	require.NoError(t, err)
	assert.InDelta(t, 45, got.Price, 0.001)

	require.NoError(t, categories.SetOffer(ctx, cat.ID, 0))
	got, err = repo.GetByID(ctx, oxford.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50, got.Price, 0.001)

	assert.ErrorIs(t, repo.SetOffer(ctx, uuid.New(), 10), model.ErrProductNotFound)
	assert.ErrorIs(t, categories.SetOffer(ctx, uuid.New(), 10), model.ErrCategoryNotFound)
	assert.Error(t, repo.SetOffer(ctx, oxford.ID, 95))
}

func TestCategoryRepository_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCategoryRepository(pool, zerolog.Nop())
	ctx := context.Background()

	shirts := seedCategory(t, pool, "Shirts")
	seedCategory(t, pool, "Scarves")

	shirts.Name = "Linen Shirts"
	shirts.Description = "Summer weight"
	require.NoError(t, repo.Update(ctx, &shirts))

	got, err := repo.GetByID(ctx, shirts.ID)
	require.NoError(t, err)
	assert.Equal(t, "Linen Shirts", got.Name)
	assert.Equal(t, "Summer weight", got.Description)

	shirts.Name = "Scarves"
	assert.ErrorIs(t, repo.Update(ctx, &shirts), model.ErrCategoryExists)

	missing := model.Category{ID: uuid.New(), Name: "Hats"}
	assert.ErrorIs(t, repo.Update(ctx, &missing), model.ErrCategoryNotFound)
}
