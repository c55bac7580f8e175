package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"organchain/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies pending schema migrations in file-name order. Applied
// versions are recorded in schema_migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		var applied bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, file,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %q: %w", file, err)
		}
		if applied {
			continue
		}

		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %q: %w", file, err)
		}
		err = tx.Run(ctx, db, func(ctx context.Context) error {
			q := tx.Executor(ctx, db)
			if _, err := q.ExecContext(ctx, string(body)); err != nil {
				return fmt.Errorf("execute migration %q: %w", file, err)
			}
			if _, err := q.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, file); err != nil {
				return fmt.Errorf("record migration %q: %w", file, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
