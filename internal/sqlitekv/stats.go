package sqlitekv

import (
	"context"

	"github.com/shirokuma-kb/core/internal/kberrors"
)

// Stats is get_stats' return shape: counts grouped by type, status,
// and priority, plus the ten most-used tags.
type Stats struct {
	ByType     map[string]int
	ByStatus   map[string]int
	ByPriority map[string]int
	TopTags    []TagUsage
}

// GetStats computes the grouped counts with one GROUP BY query each
// for type, status, and priority, plus a reuse of ListTags truncated
// to 10.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByType:     map[string]int{},
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}

	if err := groupCount(ctx, s.db, `SELECT type, COUNT(*) FROM items GROUP BY type`, stats.ByType); err != nil {
		return Stats{}, err
	}
	if err := groupCount(ctx, s.db, `
		SELECT st.name, COUNT(*)
		FROM items i JOIN statuses st ON st.id = i.status_id
		GROUP BY st.name
	`, stats.ByStatus); err != nil {
		return Stats{}, err
	}
	if err := groupCount(ctx, s.db, `SELECT priority, COUNT(*) FROM items GROUP BY priority`, stats.ByPriority); err != nil {
		return Stats{}, err
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		return Stats{}, err
	}
	if len(tags) > 10 {
		tags = tags[:10]
	}
	stats.TopTags = tags

	return stats, nil
}

func groupCount(ctx context.Context, q querier, query string, into map[string]int) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return kberrors.Wrap("group count", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return kberrors.Wrap("scan group count", err)
		}
		into[key] = count
	}
	return kberrors.Wrap("iterate group count", rows.Err())
}
