package sqlitekv

import (
	"context"
	"database/sql"

	"github.com/shirokuma-kb/core/internal/kberrors"
)

// DeleteItem removes the item row and relies on the schema's ON DELETE
// CASCADE foreign keys to remove its tag/keyword/concept/relation join
// rows in both directions, leaving no dangling joins behind. It
// returns kberrors.ErrNotFound if the item does not exist.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := itemExistsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return kberrors.NotFound("item %d", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return kberrors.Wrap("delete item", err)
		}
		return nil
	})
}
