package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// PostgresOptions are the pool settings.
type PostgresOptions struct {
	DSN      string
	MaxConns int32
	Retry    RetryOptions
}

// Postgres opens a pgx pool and waits until the database answers.
func Postgres(ctx context.Context, opts PostgresOptions, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	addr := poolConfig.ConnConfig.Host
	if err := WithRetry(ctx, "postgres", addr, pool.Ping, opts.Retry, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
