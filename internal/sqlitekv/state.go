package sqlitekv

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// UpdateCurrentStateParams is the input to update_current_state.
type UpdateCurrentStateParams struct {
	Content  string
	Tags     []string
	Metadata string
}

// GetCurrentState returns the single isActive=true row, or nil if none
// exists yet.
func (s *Store) GetCurrentState(ctx context.Context) (*kbtypes.SystemState, error) {
	state, err := scanActiveState(ctx, s.db)
	if kberrors.IsNotFound(err) {
		return nil, nil
	}
	return state, err
}

func scanActiveState(ctx context.Context, q querier) (*kbtypes.SystemState, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, version, content, summary, metrics, context, checkpoint, metadata,
			tags, related_items, is_active, created_at, updated_at
		FROM system_states WHERE is_active = 1 LIMIT 1
	`)
	return scanStateRow(row)
}

func scanStateRow(row *sql.Row) (*kbtypes.SystemState, error) {
	var st kbtypes.SystemState
	var metricsJSON, tagsJSON, relatedJSON string
	var active int
	var createdAt, updatedAt string
	err := row.Scan(
		&st.ID, &st.Version, &st.Content, &st.Summary, &metricsJSON, &st.Context, &st.Checkpoint,
		&st.Metadata, &tagsJSON, &relatedJSON, &active, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, kberrors.NotFound("active system state")
	}
	if err != nil {
		return nil, kberrors.Wrap("scan system state", err)
	}
	st.IsActive = active != 0
	st.Tags = parseJSONStringArray(tagsJSON)
	st.RelatedItems = parseJSONIntArray(relatedJSON)
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(metricsJSON), &st.Metrics); err != nil {
		return nil, kberrors.Wrap("unmarshal system state metrics", err)
	}
	return &st, nil
}

// UpdateCurrentState deactivates every existing active row, computes
// fresh metrics from the current store, derives a summary from
// content, and inserts the new active row. The
// outgoing row's version is carried forward from the prior active row
// unchanged, since update_current_state takes no version input.
func (s *Store) UpdateCurrentState(ctx context.Context, p UpdateCurrentStateParams) (*kbtypes.SystemState, error) {
	var created *kbtypes.SystemState
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		prevVersion := ""
		if prev, err := scanActiveState(ctx, tx); err == nil {
			prevVersion = prev.Version
		} else if !kberrors.IsNotFound(err) {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE system_states SET is_active = 0 WHERE is_active = 1`); err != nil {
			return kberrors.Wrap("deactivate system states", err)
		}

		metrics, err := computeMetrics(ctx, tx)
		if err != nil {
			return err
		}
		metricsJSON, err := json.Marshal(metrics)
		if err != nil {
			return kberrors.Wrap("marshal system state metrics", err)
		}

		summary := deriveSummary(p.Content)
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO system_states (version, content, summary, metrics, context, checkpoint,
				metadata, tags, related_items, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, '', '', ?, ?, '[]', 1, ?, ?)
		`,
			prevVersion, p.Content, summary, string(metricsJSON), p.Metadata,
			formatJSONStringArray(p.Tags), formatTime(now), formatTime(now),
		)
		if err != nil {
			return kberrors.Wrap("insert system state", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return kberrors.Wrap("get new system state id", err)
		}

		row := tx.QueryRowContext(ctx, `
			SELECT id, version, content, summary, metrics, context, checkpoint, metadata,
				tags, related_items, is_active, created_at, updated_at
			FROM system_states WHERE id = ?
		`, id)
		state, err := scanStateRow(row)
		if err != nil {
			return err
		}
		created = state
		return nil
	})
	return created, err
}

// computeMetrics derives totalItems, totalRelations, avgConnections,
// maxConnections, and isolatedNodes from the live store.
func computeMetrics(ctx context.Context, q querier) (kbtypes.SystemStateMetrics, error) {
	var totalItems int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&totalItems); err != nil {
		return kbtypes.SystemStateMetrics{}, kberrors.Wrap("count items", err)
	}

	var directedRelations int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_relations`).Scan(&directedRelations); err != nil {
		return kbtypes.SystemStateMetrics{}, kberrors.Wrap("count relations", err)
	}
	totalRelations := directedRelations / 2

	var avgConnections float64
	if totalItems > 0 {
		avgConnections = 2 * float64(totalRelations) / float64(totalItems)
	}

	var maxConnections int
	row := q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(cnt), 0) FROM (
			SELECT COUNT(*) AS cnt FROM item_relations GROUP BY source_id
		)
	`)
	if err := row.Scan(&maxConnections); err != nil {
		return kbtypes.SystemStateMetrics{}, kberrors.Wrap("compute max connections", err)
	}

	var isolatedNodes int
	row = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM items i
		WHERE NOT EXISTS (SELECT 1 FROM item_relations r WHERE r.source_id = i.id)
	`)
	if err := row.Scan(&isolatedNodes); err != nil {
		return kbtypes.SystemStateMetrics{}, kberrors.Wrap("count isolated nodes", err)
	}

	return kbtypes.SystemStateMetrics{
		TotalItems:     totalItems,
		TotalRelations: totalRelations,
		AvgConnections: avgConnections,
		MaxConnections: maxConnections,
		IsolatedNodes:  isolatedNodes,
		Timestamp:      time.Now().UTC(),
	}, nil
}

// deriveSummary takes the first three lines of content, joins them
// with a single space, and truncates to 200 characters.
func deriveSummary(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	joined := strings.Join(lines, " ")
	if len(joined) > 200 {
		joined = joined[:200]
	}
	return joined
}
