package repository

import (
	"context"
	"fmt"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type wishlistRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(pool *pgxpool.Pool, logger zerolog.Logger) WishlistRepository {
	return &wishlistRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "wishlist").Logger(),
	}
}

func (r *wishlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	query := `
		SELECT w.user_id, w.product_id, w.created_at, ` + productColumns + `
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query wishlist")
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer rows.Close()

	items := []model.WishlistItem{}
	for rows.Next() {
		var item model.WishlistItem
		var p model.Product
		dest := []any{
			&item.UserID, &item.ProductID, &item.CreatedAt,
		}
		err := rows.Scan(append(dest, productFields(&p)...)...)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan wishlist row")
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		applyOffer(&p)
		item.Product = &p
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist: %w", err)
	}

	return items, nil
}

func (r *wishlistRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	if err != nil {
		if foreignKeyViolation(err) {
			return model.ErrProductNotFound
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to add wishlist item")
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to remove wishlist item")
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}

func (r *wishlistRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1`, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to clear wishlist")
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}
	return nil
}
