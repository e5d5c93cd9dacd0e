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

const couponColumns = `id, code, discount_percent, max_discount, min_purchase, expires_at, is_active, created_at`

type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

func scanCoupon(row pgx.Row) (model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.MaxDiscount, &c.MinPurchase,
		&c.ExpiresAt, &c.IsActive, &c.CreatedAt)
	return c, err
}

func (r *couponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC, code`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query coupons")
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan coupon row")
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

// GetByCode matches codes case-insensitively.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c, err := scanCoupon(r.pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE UPPER(code) = UPPER($1)`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return &c, nil
}

func (r *couponRepository) Create(ctx context.Context, c *model.Coupon) error {
	query := `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Code, c.DiscountPercent, c.MaxDiscount, c.MinPurchase,
		c.ExpiresAt, c.IsActive, c.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return model.ErrCouponExists
		}
		r.logger.Error().Err(err).Str("code", c.Code).Msg("failed to create coupon")
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to delete coupon")
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCouponNotFound
	}
	return nil
}
