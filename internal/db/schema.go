package db

import (
	"context"
	"database/sql"
	"fmt"
)

// NotesSchema creates the notes table. It is idempotent and runs on every
// startup and from the migrate command.
const NotesSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id SERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
)`

// InitSchema ensures the notes table exists. Any error is fatal to startup.
func InitSchema(ctx context.Context, sqlDB *sql.DB) error {
	if _, err := sqlDB.ExecContext(ctx, NotesSchema); err != nil {
		return fmt.Errorf("failed to initialize notes schema: %w", err)
	}
	return nil
}
