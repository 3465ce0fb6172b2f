// Package migrations applies the item store's schema, idempotently, on
// every process start. Each migration checks PRAGMA table_info before
// altering a table, so re-running a migration against an
// already-migrated database is always safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one idempotent schema step, identified by a monotonic
// version number recorded in schema_migrations once applied.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, db *sql.DB) error
}

var registry = []migration{
	{1, "initial_schema", migrateInitialSchema},
	{2, "items_category_and_version_columns", migrateItemColumns},
}

// Apply runs every migration in registry whose version has not yet
// been recorded, in order, each in its own statement batch. It creates
// the schema_migrations bookkeeping table first if necessary.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	for _, m := range registry {
		if applied[m.version] {
			continue
		}
		if err := m.apply(ctx, db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			m.version, m.name,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// columnExists checks PRAGMA table_info(table) for a column named col.
func columnExists(ctx context.Context, db *sql.DB, table, col string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("check schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, pk int
		var dflt *string
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan column info: %w", err)
		}
		if name == col {
			return true, nil
		}
	}
	return false, rows.Err()
}
