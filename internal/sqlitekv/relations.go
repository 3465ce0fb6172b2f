package sqlitekv

import (
	"context"
	"database/sql"

	"github.com/shirokuma-kb/core/internal/kberrors"
)

// AddRelations ensures symmetric ItemRelation rows exist between
// sourceID and every target in targetIDs that exists; unknown targets
// are skipped silently and the call is idempotent.
func (s *Store) AddRelations(ctx context.Context, sourceID int64, targetIDs []int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return addRelationsTx(ctx, tx, sourceID, targetIDs)
	})
}

func addRelationsTx(ctx context.Context, tx execer, sourceID int64, targetIDs []int64) error {
	for _, targetID := range targetIDs {
		if targetID == sourceID {
			continue
		}
		exists, err := itemExistsTx(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := insertRelationPairTx(ctx, tx, sourceID, targetID); err != nil {
			return err
		}
	}
	return nil
}

func insertRelationPairTx(ctx context.Context, tx execer, a, b int64) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO item_relations (source_id, target_id) VALUES (?, ?)`, a, b,
	); err != nil {
		return kberrors.Wrap("insert relation", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO item_relations (source_id, target_id) VALUES (?, ?)`, b, a,
	); err != nil {
		return kberrors.Wrap("insert reverse relation", err)
	}
	return nil
}

func itemExistsTx(ctx context.Context, q querier, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, kberrors.Wrap("check item exists", err)
	}
	return true, nil
}

// GetRelatedIDs returns the direct (one-hop) neighbors of id.
func (s *Store) GetRelatedIDs(ctx context.Context, id int64) ([]int64, error) {
	return getRelatedIDsTx(ctx, s.db, id)
}

func getRelatedIDsTx(ctx context.Context, q querier, id int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT target_id FROM item_relations WHERE source_id = ? ORDER BY target_id`, id)
	if err != nil {
		return nil, kberrors.Wrap("list related ids", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var target int64
		if err := rows.Scan(&target); err != nil {
			return nil, kberrors.Wrap("scan related id", err)
		}
		out = append(out, target)
	}
	return out, kberrors.Wrap("iterate related ids", rows.Err())
}

// replaceRelationsTx diffs the current neighbor set of sourceID against
// newTargetIDs: rows no longer present are deleted symmetrically, rows
// newly present are inserted symmetrically. Unknown targets are
// skipped silently, matching AddRelations.
func replaceRelationsTx(ctx context.Context, tx execer, sourceID int64, newTargetIDs []int64) error {
	current, err := getRelatedIDsTx(ctx, tx, sourceID)
	if err != nil {
		return err
	}
	currentSet := make(map[int64]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}

	wantSet := make(map[int64]bool, len(newTargetIDs))
	for _, id := range newTargetIDs {
		if id != sourceID {
			wantSet[id] = true
		}
	}

	for id := range currentSet {
		if !wantSet[id] {
			if err := deleteRelationPairTx(ctx, tx, sourceID, id); err != nil {
				return err
			}
		}
	}

	var toAdd []int64
	for id := range wantSet {
		if !currentSet[id] {
			toAdd = append(toAdd, id)
		}
	}
	return addRelationsTx(ctx, tx, sourceID, toAdd)
}

func deleteRelationPairTx(ctx context.Context, tx execer, a, b int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_relations WHERE source_id = ? AND target_id = ?`, a, b); err != nil {
		return kberrors.Wrap("delete relation", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_relations WHERE source_id = ? AND target_id = ?`, b, a); err != nil {
		return kberrors.Wrap("delete reverse relation", err)
	}
	return nil
}
