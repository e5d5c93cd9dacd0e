package database

import (
	"context"
	"fmt"
	"time"

	"threadloom/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolConfig holds connection pool sizing.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig returns the pool sizing used when none is configured.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 1 * time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// PoolConfigFrom converts the application database settings.
func PoolConfigFrom(cfg config.DatabaseConfig) *PoolConfig {
	return &PoolConfig{
		MaxConns:        int32(cfg.MaxConnections),
		MinConns:        int32(cfg.MinConnections),
		MaxConnLifetime: time.Duration(cfg.MaxConnLifetime) * time.Second,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewPool creates a PostgreSQL connection pool and verifies it with a ping.
// A nil poolCfg uses DefaultPoolConfig.
func NewPool(ctx context.Context, connString string, poolCfg *PoolConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	if poolCfg == nil {
		poolCfg = DefaultPoolConfig()
	}

	pgCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pgCfg.MaxConns = poolCfg.MaxConns
	pgCfg.MinConns = poolCfg.MinConns
	pgCfg.MaxConnLifetime = poolCfg.MaxConnLifetime
	pgCfg.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	pgCfg.HealthCheckPeriod = 1 * time.Minute

	logger.Info().
		Str("host", pgCfg.ConnConfig.Host).
		Uint16("port", pgCfg.ConnConfig.Port).
		Str("database", pgCfg.ConnConfig.Database).
		Int32("max_connections", pgCfg.MaxConns).
		Int32("min_connections", pgCfg.MinConns).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}
