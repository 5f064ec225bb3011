// Package db opens the shared PostgreSQL connection pool and owns the schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	// DriverName is the database/sql driver registered by pgx.
	DriverName = "pgx"

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections kept in the pool.
	MaxIdleConns = 5

	// ConnMaxLifetime bounds how long a pooled connection is reused.
	ConnMaxLifetime = 5 * time.Minute

	// PingTimeout bounds the startup connectivity check.
	PingTimeout = 5 * time.Second
)

// Open creates the connection pool for dsn and verifies the store is reachable.
// The returned pool is safe for concurrent use and must be closed by the caller.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)
	sqlDB.SetConnMaxLifetime(ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqlDB, nil
}
