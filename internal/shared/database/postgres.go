// Package database owns the PostgreSQL connection pool and the schema
// migrations for the assistance platform.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidmatch/platform/internal/shared/config"
)

// DB wraps the shared pgx pool handed to the per-module repositories.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool against the configured database and verifies it is
// reachable before returning. Sessions resolve unqualified table names
// against the aidmatch schema first.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolConfig.ConnConfig.RuntimeParams["search_path"] = "aidmatch,public"
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "aidmatch-platform"

	// Assessment and application writes are small row-at-a-time
	// operations; a modest pool keeps connection pressure low.
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the pool. Safe on a zero DB.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health reports whether the database currently answers.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
