package sqlitekv

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// GetStatusByName performs an exact-case lookup and, on miss, a
// case-insensitive fallback.
func (s *Store) GetStatusByName(ctx context.Context, name string) (kbtypes.Status, error) {
	return getStatusByNameTx(ctx, s.db, name)
}

func getStatusByNameTx(ctx context.Context, q querier, name string) (kbtypes.Status, error) {
	st, err := scanStatusByExactName(ctx, q, name)
	if err == nil {
		return st, nil
	}
	if !kberrors.IsNotFound(err) {
		return kbtypes.Status{}, err
	}

	rows, qErr := q.QueryContext(ctx, `SELECT id, name, is_closable, sort_order FROM statuses`)
	if qErr != nil {
		return kbtypes.Status{}, kberrors.Wrap("list statuses for case-insensitive lookup", qErr)
	}
	defer func() { _ = rows.Close() }()

	lower := strings.ToLower(name)
	for rows.Next() {
		var cand kbtypes.Status
		var closable int
		if scanErr := rows.Scan(&cand.ID, &cand.Name, &closable, &cand.SortOrder); scanErr != nil {
			return kbtypes.Status{}, kberrors.Wrap("scan status", scanErr)
		}
		cand.IsClosable = closable != 0
		if strings.ToLower(cand.Name) == lower {
			return cand, nil
		}
	}
	if rErr := rows.Err(); rErr != nil {
		return kbtypes.Status{}, kberrors.Wrap("iterate statuses", rErr)
	}
	return kbtypes.Status{}, kberrors.NotFound("status %q", name)
}

func scanStatusByExactName(ctx context.Context, q querier, name string) (kbtypes.Status, error) {
	var st kbtypes.Status
	var closable int
	err := q.QueryRowContext(ctx, `SELECT id, name, is_closable, sort_order FROM statuses WHERE name = ?`, name).
		Scan(&st.ID, &st.Name, &closable, &st.SortOrder)
	if err == sql.ErrNoRows {
		return kbtypes.Status{}, kberrors.NotFound("status %q", name)
	}
	if err != nil {
		return kbtypes.Status{}, kberrors.Wrap("get status by name", err)
	}
	st.IsClosable = closable != 0
	return st, nil
}

// ListStatuses returns every configured status, ordered by sort_order.
func (s *Store) ListStatuses(ctx context.Context) ([]kbtypes.Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_closable, sort_order FROM statuses ORDER BY sort_order`)
	if err != nil {
		return nil, kberrors.Wrap("list statuses", err)
	}
	defer func() { _ = rows.Close() }()

	var out []kbtypes.Status
	for rows.Next() {
		var st kbtypes.Status
		var closable int
		if err := rows.Scan(&st.ID, &st.Name, &closable, &st.SortOrder); err != nil {
			return nil, kberrors.Wrap("scan status", err)
		}
		st.IsClosable = closable != 0
		out = append(out, st)
	}
	return out, kberrors.Wrap("iterate statuses", rows.Err())
}

// querier abstracts over *sql.DB and *sql.Tx so read helpers can run
// either standalone or inside a write transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
