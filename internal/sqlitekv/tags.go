package sqlitekv

import (
	"context"
	"database/sql"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// execer abstracts over *sql.DB and *sql.Tx for write helpers.
type execer interface {
	querier
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// EnsureTags is the get-or-create-per-name helper: each supplied name
// is looked up and, on miss, inserted, case-sensitive.
// Returns the final Tag rows in input order.
func (s *Store) EnsureTags(ctx context.Context, names []string) ([]kbtypes.Tag, error) {
	var out []kbtypes.Tag
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		tags, innerErr := ensureTagsTx(ctx, tx, names)
		out = tags
		return innerErr
	})
	return out, err
}

func ensureTagsTx(ctx context.Context, tx execer, names []string) ([]kbtypes.Tag, error) {
	out := make([]kbtypes.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var t kbtypes.Tag
		err := tx.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name)
		if err == sql.ErrNoRows {
			res, insErr := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
			if insErr != nil {
				return nil, kberrors.Wrap("insert tag", insErr)
			}
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return nil, kberrors.Wrap("get new tag id", idErr)
			}
			t = kbtypes.Tag{ID: id, Name: name}
		} else if err != nil {
			return nil, kberrors.Wrap("lookup tag", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ensureKeywordTx gets-or-creates a single keyword row by word.
func ensureKeywordTx(ctx context.Context, tx execer, word string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM keywords WHERE word = ?`, word).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, kberrors.Wrap("lookup keyword", err)
	}
	res, insErr := tx.ExecContext(ctx, `INSERT INTO keywords (word) VALUES (?)`, word)
	if insErr != nil {
		return 0, kberrors.Wrap("insert keyword", insErr)
	}
	return res.LastInsertId()
}

// ensureConceptTx gets-or-creates a single concept row by name.
func ensureConceptTx(ctx context.Context, tx execer, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM concepts WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, kberrors.Wrap("lookup concept", err)
	}
	res, insErr := tx.ExecContext(ctx, `INSERT INTO concepts (name) VALUES (?)`, name)
	if insErr != nil {
		return 0, kberrors.Wrap("insert concept", insErr)
	}
	return res.LastInsertId()
}

// ListTags returns every tag together with its use count across
// items, ordered by use count descending then name ascending — the
// get_tags operation.
func (s *Store) ListTags(ctx context.Context) ([]TagUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(it.item_id) AS uses
		FROM tags t
		LEFT JOIN item_tags it ON it.tag_id = t.id
		GROUP BY t.id, t.name
		ORDER BY uses DESC, t.name ASC
	`)
	if err != nil {
		return nil, kberrors.Wrap("list tags", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TagUsage
	for rows.Next() {
		var tu TagUsage
		if err := rows.Scan(&tu.Tag.ID, &tu.Tag.Name, &tu.Count); err != nil {
			return nil, kberrors.Wrap("scan tag usage", err)
		}
		out = append(out, tu)
	}
	return out, kberrors.Wrap("iterate tag usage", rows.Err())
}

// TagUsage pairs a Tag with how many items currently carry it.
type TagUsage struct {
	Tag   kbtypes.Tag
	Count int
}
