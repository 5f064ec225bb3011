// Package testdb provides PostgreSQL-backed databases for integration tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kuitang/notes-api/internal/db"
)

// EnvDatabaseURL names the env var holding a PostgreSQL URL for integration
// tests. Tests that need a real database are skipped when it is unset.
const EnvDatabaseURL = "NOTES_TEST_DATABASE_URL"

// Open connects to the integration database and returns a pool bound to a
// fresh, uniquely named schema with the notes table created. The schema is
// dropped when the test ends.
func Open(tb testing.TB) *sql.DB {
	tb.Helper()

	base := os.Getenv(EnvDatabaseURL)
	if base == "" {
		tb.Skipf("%s not set; skipping PostgreSQL integration test", EnvDatabaseURL)
	}
	ctx := context.Background()

	admin, err := db.Open(ctx, base)
	if err != nil {
		tb.Fatalf("failed to connect to integration database: %v", err)
	}
	defer admin.Close()

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		tb.Fatalf("failed to create schema %s: %v", schema, err)
	}

	dsn, err := withSearchPath(base, schema)
	if err != nil {
		tb.Fatalf("invalid %s: %v", EnvDatabaseURL, err)
	}
	sqlDB, err := db.Open(ctx, dsn)
	if err != nil {
		tb.Fatalf("failed to connect to schema %s: %v", schema, err)
	}
	if err := db.InitSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		tb.Fatalf("failed to init schema: %v", err)
	}

	tb.Cleanup(func() {
		sqlDB.Close()
		cleanup, err := db.Open(context.Background(), base)
		if err != nil {
			tb.Logf("failed to reconnect for cleanup: %v", err)
			return
		}
		defer cleanup.Close()
		if _, err := cleanup.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			tb.Logf("failed to drop schema %s: %v", schema, err)
		}
	})

	return sqlDB
}

// withSearchPath returns rawURL with every connection pinned to schema.
func withSearchPath(rawURL, schema string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
