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

const addressColumns = `id, user_id, full_name, phone, line1, line2, city, state, postal_code, country, created_at`

type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

func scanAddress(row pgx.Row) (model.Address, error) {
	var a model.Address
	err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.Line1, &a.Line2,
		&a.City, &a.State, &a.PostalCode, &a.Country, &a.CreatedAt)
	return a, err
}

func (r *addressRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error) {
	a, err := scanAddress(r.pool.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("address_id", id.String()).Msg("address not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("address_id", id.String()).Msg("failed to query address")
		return nil, fmt.Errorf("failed to query address: %w", err)
	}
	return &a, nil
}

func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query addresses")
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []model.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan address row")
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func (r *addressRepository) Create(ctx context.Context, a *model.Address) error {
	query := `INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query, a.ID, a.UserID, a.FullName, a.Phone, a.Line1, a.Line2,
		a.City, a.State, a.PostalCode, a.Country, a.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", a.UserID.String()).Msg("failed to create address")
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}
