package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateItemColumns adds the category and version columns to items,
// checking PRAGMA table_info first so the migration is a no-op against
// a database that already has them.
func migrateItemColumns(ctx context.Context, db *sql.DB) error {
	hasCategory, err := columnExists(ctx, db, "items", "category")
	if err != nil {
		return err
	}
	if !hasCategory {
		if _, err := db.ExecContext(ctx, `ALTER TABLE items ADD COLUMN category TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add category column: %w", err)
		}
	}

	hasVersion, err := columnExists(ctx, db, "items", "version")
	if err != nil {
		return err
	}
	if !hasVersion {
		if _, err := db.ExecContext(ctx, `ALTER TABLE items ADD COLUMN version TEXT`); err != nil {
			return fmt.Errorf("add version column: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`); err != nil {
		return fmt.Errorf("create category index: %w", err)
	}
	return nil
}
