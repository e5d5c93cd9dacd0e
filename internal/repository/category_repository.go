package repository

import (
	"context"
	"errors"
	"fmt"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type categoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "category").Logger(),
	}
}

func (r *categoryRepository) List(ctx context.Context, listedOnly bool) ([]model.Category, error) {
	query := `
		SELECT id, name, description, offer_percent, is_unlisted, created_at
		FROM categories
		WHERE ($1 = FALSE OR NOT is_unlisted)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, listedOnly)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.OfferPercent, &c.IsUnlisted, &c.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category row")
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	query := `
		SELECT id, name, description, offer_percent, is_unlisted, created_at
		FROM categories
		WHERE id = $1
	`

	var c model.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.OfferPercent, &c.IsUnlisted, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to query category")
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
		INSERT INTO categories (id, name, description, is_unlisted, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Description, c.IsUnlisted, c.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return model.ErrCategoryExists
		}
		r.logger.Error().Err(err).Str("name", c.Name).Msg("failed to create category")
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// Update renames the category and replaces its description.
func (r *categoryRepository) Update(ctx context.Context, c *model.Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $2, description = $3 WHERE id = $1`,
		c.ID, c.Name, c.Description,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return model.ErrCategoryExists
		}
		r.logger.Error().Err(err).Str("category_id", c.ID.String()).Msg("failed to update category")
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

func (r *categoryRepository) SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error {
	return r.set(ctx, id, `UPDATE categories SET is_unlisted = $2 WHERE id = $1`, unlisted)
}

// SetOffer sets the offer applied to every product in the category; zero
// removes it.
func (r *categoryRepository) SetOffer(ctx context.Context, id uuid.UUID, percent int) error {
	return r.set(ctx, id, `UPDATE categories SET offer_percent = $2 WHERE id = $1`, percent)
}

func (r *categoryRepository) set(ctx context.Context, id uuid.UUID, query string, value any) error {
	tag, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		r.logger.Error().Err(err).Str("category_id", id.String()).Msg("failed to update category")
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}
