package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const userColumns = `id, name, email, mobile, password_hash, is_verified, is_blocked, created_at, updated_at`

type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query, u.ID, u.Name, u.Email, u.Mobile, u.PasswordHash,
		u.IsVerified, u.IsBlocked, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if strings.Contains(constraint, "mobile") {
				return model.ErrMobileExists
			}
			return model.ErrEmailExists
		}
		r.logger.Error().Err(err).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) getBy(ctx context.Context, column string, value any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value).Scan(
		&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.IsVerified, &u.IsBlocked, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("by", column).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepository) GetByMobile(ctx context.Context, mobile string) (*model.User, error) {
	return r.getBy(ctx, "mobile", mobile)
}

func (r *userRepository) MarkVerified(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE email = $1`,
		email,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to verify user")
		return fmt.Errorf("failed to verify user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
