package sqlitekv

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// ItemSignature is the slice of an Item the hybrid related-item
// engine (C5) needs to score a candidate: its keywords, concepts, and
// embedding, without the heavier title/content fields.
type ItemSignature struct {
	ID        int64
	Type      string
	Keywords  []kbtypes.ItemKeyword
	Concepts  []kbtypes.ItemConcept
	Embedding []byte
}

// ListItemSignatures returns the candidate pool for hybrid scoring:
// every item other than excludeID, optionally restricted to types.
func (s *Store) ListItemSignatures(ctx context.Context, excludeID int64, types []string) ([]ItemSignature, error) {
	sqlText := `SELECT id, type, embedding FROM items WHERE id != ?`
	args := []interface{}{excludeID}
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		sqlText += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ", "))
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, kberrors.Wrap("list item signatures", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ItemSignature
	for rows.Next() {
		var sig ItemSignature
		if err := rows.Scan(&sig.ID, &sig.Type, &sig.Embedding); err != nil {
			return nil, kberrors.Wrap("scan item signature", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, kberrors.Wrap("iterate item signatures", err)
	}

	for i := range out {
		keywords, err := loadItemKeywordsTx(ctx, s.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Keywords = keywords
		concepts, err := loadItemConceptsTx(ctx, s.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Concepts = concepts
	}
	return out, nil
}
