package repository

import (
	"context"
	"errors"
	"fmt"

	"threadloom/internal/model"
	"threadloom/internal/pricing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	p.id, p.name, p.description, p.price, p.offer_percent, p.category_id, c.name, c.offer_percent,
	p.image_url, p.popularity, p.is_featured, p.is_unlisted, p.stock, p.created_at, p.updated_at`

// sellingPrice mirrors pricing.ApplyOffer for ORDER BY.
const sellingPrice = `ROUND(p.price * (100 - GREATEST(p.offer_percent, c.offer_percent)) / 100, 2)`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id`

// productOrder maps sort keys to ORDER BY clauses. Unknown keys fall back
// to newest first.
var productOrder = map[model.ProductSort]string{
	model.SortPopularity:  "p.popularity DESC, p.created_at DESC",
	model.SortPriceAsc:    sellingPrice + " ASC, p.name ASC",
	model.SortPriceDesc:   sellingPrice + " DESC, p.name ASC",
	model.SortFeatured:    "p.is_featured DESC, p.created_at DESC",
	model.SortNewArrivals: "p.created_at DESC",
	model.SortNameAsc:     "p.name ASC",
	model.SortNameDesc:    "p.name DESC",
}

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// productFields returns the scan targets for productColumns.
func productFields(p *model.Product) []any {
	return []any{
		&p.ID, &p.Name, &p.Description, &p.RegularPrice, &p.OfferPercent, &p.CategoryID, &p.CategoryName, &p.CategoryOffer,
		&p.ImageURL, &p.Popularity, &p.IsFeatured, &p.IsUnlisted, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
	}
}

// applyOffer derives the selling price of a scanned product.
func applyOffer(p *model.Product) {
	p.Price = pricing.ApplyOffer(p.RegularPrice, p.AppliedOffer())
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	if err := row.Scan(productFields(&p)...); err != nil {
		return p, err
	}
	applyOffer(&p)
	return p, nil
}

func (r *productRepository) collect(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// List retrieves products ordered and paginated by the filter.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	order, ok := productOrder[filter.Sort]
	if !ok {
		order = "p.created_at DESC"
	}

	query := `SELECT ` + productColumns + productFrom + `
		WHERE ($1 = FALSE OR (NOT p.is_unlisted AND NOT c.is_unlisted))
		ORDER BY ` + order + `, p.id
		LIMIT $2 OFFSET $3`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx, query, filter.ListedOnly, limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", filter.Offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return r.collect(rows)
}

// Count returns the number of products, optionally listed ones only.
func (r *productRepository) Count(ctx context.Context, listedOnly bool) (int, error) {
	query := `SELECT COUNT(*)` + productFrom + `
		WHERE ($1 = FALSE OR (NOT p.is_unlisted AND NOT c.is_unlisted))`

	var count int
	if err := r.pool.QueryRow(ctx, query, listedOnly).Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count products")
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.id = ANY($1)
		ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	return r.collect(rows)
}

// Create inserts a product with Price as its regular price and no offer.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category_id, image_url,
			popularity, is_featured, is_unlisted, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.CategoryID, p.ImageURL,
		p.Popularity, p.IsFeatured, p.IsUnlisted, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if foreignKeyViolation(err) {
			return model.ErrCategoryNotFound
		}
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	p.RegularPrice = p.Price
	p.OfferPercent = 0
	return nil
}

func (r *productRepository) SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error {
	return r.update(ctx, id, `UPDATE products SET is_unlisted = $2, updated_at = NOW() WHERE id = $1`, unlisted)
}

// SetOffer sets the product's own offer; zero removes it.
func (r *productRepository) SetOffer(ctx context.Context, id uuid.UUID, percent int) error {
	return r.update(ctx, id, `UPDATE products SET offer_percent = $2, updated_at = NOW() WHERE id = $1`, percent)
}

func (r *productRepository) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.update(ctx, id, `UPDATE products SET image_url = $2, updated_at = NOW() WHERE id = $1`, url)
}

func (r *productRepository) update(ctx context.Context, id uuid.UUID, query string, value any) error {
	tag, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product")
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}
	return nil
}
