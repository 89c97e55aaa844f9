// Package database provides connection setup for MariaDB and Redis, schema
// migrations, and the transaction helper used by multi-table writes. The
// pool and the Redis client are created once at startup and injected into
// the plugins that need them. This package owns their lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/studentrecords/internal/config"
)

// connectAttempts bounds the startup ping loop.
const connectAttempts = 10

// NewMariaDB opens the student records pool and pings it until the server
// answers. MariaDB may still be starting when the app container launches,
// so the ping is retried with exponential backoff (1s doubling, capped at
// 30s). Cancelling ctx aborts the wait.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	backoff := time.Second
	var pingErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if pingErr = Ping(ctx, db); pingErr == nil {
			return db, nil
		}
		if attempt == connectAttempts {
			break
		}

		slog.Warn("mariadb not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)

		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("waiting for mariadb: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("pinging mariadb after %d attempts: %w", connectAttempts, pingErr)
}

// Ping checks the pool with a short per-call deadline. Used at startup and
// by the health endpoint.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
