package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateInitialSchema creates every table the item store needs:
// statuses, tags, keywords, concepts, items, the three join tables
// (item_tags carries no weight; item_keywords and item_concepts carry
// weight and confidence), the symmetric item_relations table, and
// system_states.
func migrateInitialSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS statuses (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL UNIQUE,
			is_closable INTEGER NOT NULL DEFAULT 0,
			sort_order  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS keywords (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			word TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS concepts (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			type         TEXT NOT NULL,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			content      TEXT NOT NULL DEFAULT '',
			priority     TEXT NOT NULL DEFAULT 'MEDIUM',
			status_id    INTEGER NOT NULL REFERENCES statuses(id),
			start_date   TEXT,
			end_date     TEXT,
			ai_summary   TEXT NOT NULL DEFAULT '',
			search_index TEXT NOT NULL DEFAULT '',
			embedding    BLOB,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_type ON items(type)`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_priority ON items(priority)`,
		`CREATE INDEX IF NOT EXISTS idx_items_updated_at ON items(updated_at)`,

		`CREATE TABLE IF NOT EXISTS item_tags (
			item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			tag_id  INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (item_id, tag_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag_id)`,

		`CREATE TABLE IF NOT EXISTS item_keywords (
			item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			keyword_id INTEGER NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
			weight     REAL NOT NULL CHECK (weight > 0 AND weight <= 1),
			PRIMARY KEY (item_id, keyword_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_keywords_keyword ON item_keywords(keyword_id)`,

		`CREATE TABLE IF NOT EXISTS item_concepts (
			item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
			confidence REAL NOT NULL CHECK (confidence > 0 AND confidence <= 1),
			PRIMARY KEY (item_id, concept_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_concepts_concept ON item_concepts(concept_id)`,

		`CREATE TABLE IF NOT EXISTS item_relations (
			source_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			target_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			PRIMARY KEY (source_id, target_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_relations_target ON item_relations(target_id)`,

		`CREATE TABLE IF NOT EXISTS system_states (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			version       TEXT NOT NULL DEFAULT '',
			content       TEXT NOT NULL DEFAULT '',
			summary       TEXT NOT NULL DEFAULT '',
			metrics       TEXT NOT NULL DEFAULT '{}',
			context       TEXT NOT NULL DEFAULT '',
			checkpoint    TEXT NOT NULL DEFAULT '',
			metadata      TEXT NOT NULL DEFAULT '',
			tags          TEXT NOT NULL DEFAULT '[]',
			related_items TEXT NOT NULL DEFAULT '[]',
			is_active     INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_system_states_active ON system_states(is_active)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
