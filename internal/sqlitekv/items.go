package sqlitekv

import (
	"context"
	"database/sql"
	"time"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// CreateItemParams is everything the storage adapter needs to persist
// a new Item and its joins in one transaction. The caller (itemsvc)
// has already resolved defaults and computed enrichment before this
// call, per the concurrency model: enrichment runs outside the
// transaction's hot section.
type CreateItemParams struct {
	Type        string
	Title       string
	Description string
	Content     string
	Priority    kbtypes.Priority
	StatusName  string
	Category    string
	StartDate   *time.Time
	EndDate     *time.Time
	Version     string // already normalized, or empty

	Tags     []string
	Keywords []kbtypes.ItemKeyword
	Concepts []kbtypes.ItemConcept

	AISummary   string
	SearchIndex string
	Embedding   []byte

	RelatedIDs []int64
}

// CreateItem resolves the status, ensures tags, inserts the item row,
// inserts the keyword/concept/tag joins, and creates symmetric
// ItemRelation rows for each supplied related id that exists — all in
// one transaction.
func (s *Store) CreateItem(ctx context.Context, p CreateItemParams) (*kbtypes.Item, error) {
	var created *kbtypes.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, err := getStatusByNameTx(ctx, tx, p.StatusName)
		if err != nil {
			return err
		}

		tags, err := ensureTagsTx(ctx, tx, p.Tags)
		if err != nil {
			return err
		}

		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO items (type, title, description, content, priority, status_id,
				category, start_date, end_date, version, ai_summary, search_index, embedding,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.Type, p.Title, p.Description, p.Content, string(p.Priority), status.ID,
			p.Category, formatNullableTime(p.StartDate), formatNullableTime(p.EndDate),
			nullableString(p.Version), p.AISummary, p.SearchIndex, p.Embedding,
			formatTime(now), formatTime(now),
		)
		if err != nil {
			return kberrors.Wrap("insert item", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return kberrors.Wrap("get new item id", err)
		}

		if err := replaceItemTagsTx(ctx, tx, itemID, tags); err != nil {
			return err
		}
		if err := replaceItemKeywordsTx(ctx, tx, itemID, p.Keywords); err != nil {
			return err
		}
		if err := replaceItemConceptsTx(ctx, tx, itemID, p.Concepts); err != nil {
			return err
		}
		if err := addRelationsTx(ctx, tx, itemID, p.RelatedIDs); err != nil {
			return err
		}

		item, err := getItemTx(ctx, tx, itemID)
		if err != nil {
			return err
		}
		created = item
		return nil
	})
	return created, err
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// GetItem loads an item by id with its tags, keywords, and concepts
// hydrated. Embedding and SearchIndex are included; callers building
// the public get_item response must strip them.
func (s *Store) GetItem(ctx context.Context, id int64) (*kbtypes.Item, error) {
	return getItemTx(ctx, s.db, id)
}

func getItemTx(ctx context.Context, q querier, id int64) (*kbtypes.Item, error) {
	item, err := scanItemRow(ctx, q, id)
	if err != nil {
		return nil, err
	}

	tags, err := loadItemTagsTx(ctx, q, id)
	if err != nil {
		return nil, err
	}
	item.Tags = tags

	keywords, err := loadItemKeywordsTx(ctx, q, id)
	if err != nil {
		return nil, err
	}
	item.Keywords = keywords

	concepts, err := loadItemConceptsTx(ctx, q, id)
	if err != nil {
		return nil, err
	}
	item.Concepts = concepts

	return item, nil
}

func scanItemRow(ctx context.Context, q querier, id int64) (*kbtypes.Item, error) {
	var item kbtypes.Item
	var statusID int64
	var startDate, endDate, version sql.NullString
	var createdAt, updatedAt string
	var embedding []byte

	row := q.QueryRowContext(ctx, `
		SELECT id, type, title, description, content, priority, status_id, category,
			start_date, end_date, version, ai_summary, search_index, embedding,
			created_at, updated_at
		FROM items WHERE id = ?
	`, id)
	err := row.Scan(
		&item.ID, &item.Type, &item.Title, &item.Description, &item.Content,
		&item.Priority, &statusID, &item.Category,
		&startDate, &endDate, &version, &item.AISummary, &item.SearchIndex, &embedding,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, kberrors.NotFound("item %d", id)
	}
	if err != nil {
		return nil, kberrors.Wrap("scan item", err)
	}

	status, err := scanStatusByID(ctx, q, statusID)
	if err != nil {
		return nil, err
	}
	item.Status = status
	item.StartDate = parseNullableTime(startDate)
	item.EndDate = parseNullableTime(endDate)
	if version.Valid {
		item.Version = kbtypes.DenormalizeVersion(version.String)
	}
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	if len(embedding) > 0 {
		item.Embedding = embedding
	}
	return &item, nil
}

func scanStatusByID(ctx context.Context, q querier, id int64) (kbtypes.Status, error) {
	var st kbtypes.Status
	var closable int
	err := q.QueryRowContext(ctx, `SELECT id, name, is_closable, sort_order FROM statuses WHERE id = ?`, id).
		Scan(&st.ID, &st.Name, &closable, &st.SortOrder)
	if err == sql.ErrNoRows {
		return kbtypes.Status{}, kberrors.NotFound("status id %d", id)
	}
	if err != nil {
		return kbtypes.Status{}, kberrors.Wrap("get status by id", err)
	}
	st.IsClosable = closable != 0
	return st, nil
}

func loadItemTagsTx(ctx context.Context, q querier, itemID int64) ([]kbtypes.Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name FROM tags t
		JOIN item_tags it ON it.tag_id = t.id
		WHERE it.item_id = ? ORDER BY t.name
	`, itemID)
	if err != nil {
		return nil, kberrors.Wrap("load item tags", err)
	}
	defer func() { _ = rows.Close() }()

	var out []kbtypes.Tag
	for rows.Next() {
		var t kbtypes.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, kberrors.Wrap("scan item tag", err)
		}
		out = append(out, t)
	}
	return out, kberrors.Wrap("iterate item tags", rows.Err())
}

func loadItemKeywordsTx(ctx context.Context, q querier, itemID int64) ([]kbtypes.ItemKeyword, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT k.word, ik.weight FROM keywords k
		JOIN item_keywords ik ON ik.keyword_id = k.id
		WHERE ik.item_id = ? ORDER BY ik.weight DESC
	`, itemID)
	if err != nil {
		return nil, kberrors.Wrap("load item keywords", err)
	}
	defer func() { _ = rows.Close() }()

	var out []kbtypes.ItemKeyword
	for rows.Next() {
		var kw kbtypes.ItemKeyword
		if err := rows.Scan(&kw.Word, &kw.Weight); err != nil {
			return nil, kberrors.Wrap("scan item keyword", err)
		}
		out = append(out, kw)
	}
	return out, kberrors.Wrap("iterate item keywords", rows.Err())
}

func loadItemConceptsTx(ctx context.Context, q querier, itemID int64) ([]kbtypes.ItemConcept, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.name, ic.confidence FROM concepts c
		JOIN item_concepts ic ON ic.concept_id = c.id
		WHERE ic.item_id = ? ORDER BY ic.confidence DESC
	`, itemID)
	if err != nil {
		return nil, kberrors.Wrap("load item concepts", err)
	}
	defer func() { _ = rows.Close() }()

	var out []kbtypes.ItemConcept
	for rows.Next() {
		var c kbtypes.ItemConcept
		if err := rows.Scan(&c.Name, &c.Confidence); err != nil {
			return nil, kberrors.Wrap("scan item concept", err)
		}
		out = append(out, c)
	}
	return out, kberrors.Wrap("iterate item concepts", rows.Err())
}

func replaceItemTagsTx(ctx context.Context, tx execer, itemID int64, tags []kbtypes.Tag) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = ?`, itemID); err != nil {
		return kberrors.Wrap("clear item tags", err)
	}
	for _, t := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_tags (item_id, tag_id) VALUES (?, ?)`, itemID, t.ID,
		); err != nil {
			return kberrors.Wrap("insert item tag", err)
		}
	}
	return nil
}

func replaceItemKeywordsTx(ctx context.Context, tx execer, itemID int64, keywords []kbtypes.ItemKeyword) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_keywords WHERE item_id = ?`, itemID); err != nil {
		return kberrors.Wrap("clear item keywords", err)
	}
	for _, kw := range keywords {
		keywordID, err := ensureKeywordTx(ctx, tx, kw.Word)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_keywords (item_id, keyword_id, weight) VALUES (?, ?, ?)`,
			itemID, keywordID, kw.Weight,
		); err != nil {
			return kberrors.Wrap("insert item keyword", err)
		}
	}
	return nil
}

func replaceItemConceptsTx(ctx context.Context, tx execer, itemID int64, concepts []kbtypes.ItemConcept) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_concepts WHERE item_id = ?`, itemID); err != nil {
		return kberrors.Wrap("clear item concepts", err)
	}
	for _, c := range concepts {
		conceptID, err := ensureConceptTx(ctx, tx, c.Name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_concepts (item_id, concept_id, confidence) VALUES (?, ?, ?)`,
			itemID, conceptID, c.Confidence,
		); err != nil {
			return kberrors.Wrap("insert item concept", err)
		}
	}
	return nil
}
