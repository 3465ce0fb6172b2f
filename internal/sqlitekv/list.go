package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/query"
)

// defaultLimit and maxLimit bound list_items/search_items pagination
// when the caller leaves limit unset or exceeds the ceiling.
const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListItemsParams is the non-search listing surface: the same
// structured filters as search, but no free text and an explicit sort.
type ListItemsParams struct {
	Query     query.Query
	Limit     int
	Offset    int
	SortBy    string // "created", "updated", or "priority"; default "updated"
	SortOrder string // "asc" or "desc"; default "desc"
}

// ListItems returns lightweight projections matching the filter,
// ordered and paginated as requested.
func (s *Store) ListItems(ctx context.Context, p ListItemsParams) ([]kbtypes.ItemSummary, error) {
	where := query.NewEvaluator().BuildWhere(p.Query)
	orderBy := orderByClause(p.SortBy, p.SortOrder)
	limit, offset := clampPage(p.Limit, p.Offset)

	return listItemSummaries(ctx, s.db, where, orderBy, limit, offset)
}

// SearchParams is the search_items surface: a structured+free-text
// query string plus an optional additional type restriction.
type SearchParams struct {
	QueryString string
	Types       []string
	Limit       int
	Offset      int
}

// SearchItems parses QueryString with the structured search grammar
// and returns matching lightweight projections ordered by most
// recently updated.
func (s *Store) SearchItems(ctx context.Context, p SearchParams) ([]kbtypes.ItemSummary, error) {
	parsed, err := query.Parse(p.QueryString)
	if err != nil {
		// Parse never actually returns an error for the current grammar,
		// but if it ever does, degrade to a pure substring search.
		parsed = query.Query{FreeText: []string{p.QueryString}}
	}

	where := query.NewEvaluator().BuildWhere(parsed)
	if len(p.Types) > 0 {
		placeholders := make([]string, len(p.Types))
		args := make([]interface{}, len(p.Types))
		for i, t := range p.Types {
			placeholders[i] = "?"
			args[i] = t
		}
		where.SQL = fmt.Sprintf("(%s) AND type IN (%s)", where.SQL, strings.Join(placeholders, ", "))
		where.Args = append(where.Args, args...)
	}

	limit, offset := clampPage(p.Limit, p.Offset)
	return listItemSummaries(ctx, s.db, where, "updated_at DESC", limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func orderByClause(sortBy, sortOrder string) string {
	direction := "DESC"
	if strings.ToLower(sortOrder) == "asc" {
		direction = "ASC"
	}
	switch strings.ToLower(sortBy) {
	case "created":
		return "created_at " + direction
	case "priority":
		return `CASE priority
			WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2
			WHEN 'LOW' THEN 3 WHEN 'MINIMAL' THEN 4 ELSE 5 END ` + direction
	default:
		return "updated_at " + direction
	}
}

func listItemSummaries(ctx context.Context, db *sql.DB, where query.WhereClause, orderBy string, limit, offset int) ([]kbtypes.ItemSummary, error) {
	sqlText := fmt.Sprintf(`
		SELECT i.id, i.type, i.title, i.priority, i.category, i.version,
			i.created_at, i.updated_at, s.id, s.name, s.is_closable, s.sort_order
		FROM items i
		JOIN statuses s ON s.id = i.status_id
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, where.SQL, orderBy)

	args := append(append([]interface{}{}, where.Args...), limit, offset)
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, kberrors.Wrap("list items", err)
	}
	defer func() { _ = rows.Close() }()

	var out []kbtypes.ItemSummary
	for rows.Next() {
		var sum kbtypes.ItemSummary
		var version sql.NullString
		var createdAt, updatedAt string
		var closable int
		if err := rows.Scan(
			&sum.ID, &sum.Type, &sum.Title, &sum.Priority, &sum.Category, &version,
			&createdAt, &updatedAt,
			&sum.Status.ID, &sum.Status.Name, &closable, &sum.Status.SortOrder,
		); err != nil {
			return nil, kberrors.Wrap("scan item summary", err)
		}
		sum.Status.IsClosable = closable != 0
		if version.Valid {
			sum.Version = kbtypes.DenormalizeVersion(version.String)
		}
		sum.CreatedAt = parseTime(createdAt)
		sum.UpdatedAt = parseTime(updatedAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, kberrors.Wrap("iterate item summaries", err)
	}

	for i := range out {
		tags, err := loadItemTagNamesTx(ctx, db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func loadItemTagNamesTx(ctx context.Context, q querier, itemID int64) ([]string, error) {
	tags, err := loadItemTagsTx(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names, nil
}
