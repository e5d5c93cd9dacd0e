package repository

import (
	"context"
	"fmt"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.price, ci.created_at, ` + productColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var item model.CartItem
		var p model.Product
		dest := []any{
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt,
		}
		err := rows.Scan(append(dest, productFields(&p)...)...)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		applyOffer(&p)
		item.Product = &p
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Upsert adds quantity to an existing line or inserts a new one. The
// captured price is refreshed to the one supplied.
func (r *cartRepository) Upsert(ctx context.Context, item *model.CartItem) error {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, price = EXCLUDED.price
		RETURNING id, quantity
	`

	err := r.pool.QueryRow(ctx, query,
		item.ID, item.UserID, item.ProductID, item.Quantity, item.Price, item.CreatedAt,
	).Scan(&item.ID, &item.Quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", item.UserID.String()).
			Str("product_id", item.ProductID.String()).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to update cart item")
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to remove cart item")
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	r.logger.Debug().
		Str("user_id", userID.String()).
		Int64("removed", tag.RowsAffected()).
		Msg("cart cleared")

	return nil
}
