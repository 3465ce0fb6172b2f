package sqlitekv

import (
	"context"
	"database/sql"
	"time"

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// UpdateItemParams carries only the fields the caller supplied. A nil
// pointer means "leave unchanged"; a non-nil pointer (even to a zero
// value) means "set to this": missing fields are never changed.
type UpdateItemParams struct {
	ID int64

	Type        *string
	Title       *string
	Description *string
	Content     *string
	Priority    *kbtypes.Priority
	StatusName  *string
	Category    *string

	StartDate      *time.Time
	ClearStartDate bool
	EndDate        *time.Time
	ClearEndDate   bool

	// Version, when non-nil, replaces the stored version; pointer to ""
	// clears it. Already normalized by the caller.
	Version *string

	// Tags, when non-nil, replaces the item's tag set (even an empty
	// slice clears every tag).
	Tags *[]string

	// Related, when non-nil, replaces the item's relation set.
	Related *[]int64

	// RecomputeEnrichment is true iff the caller included any of
	// title/description/content. When true,
	// Keywords/Concepts/AISummary/SearchIndex/Embedding below replace
	// the stored enrichment atomically; when false they are ignored and
	// the stored enrichment is left byte-identical.
	RecomputeEnrichment bool
	Keywords            []kbtypes.ItemKeyword
	Concepts            []kbtypes.ItemConcept
	AISummary           string
	SearchIndex         string
	Embedding           []byte
}

// UpdateItem applies a partial update inside one transaction: it loads
// the current row, merges in whatever fields were supplied, rewrites
// the row, and — only when RecomputeEnrichment is set — deletes and
// replaces the keyword/concept joins atomically. Tags, when
// supplied, replace the whole tag set; Related, when supplied, is
// diffed against the current set, so symmetric relation rows are
// added/removed correctly.
func (s *Store) UpdateItem(ctx context.Context, p UpdateItemParams) (*kbtypes.Item, error) {
	var updated *kbtypes.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanItemRow(ctx, tx, p.ID)
		if err != nil {
			return err
		}

		statusID := current.Status.ID
		if p.StatusName != nil {
			st, stErr := getStatusByNameTx(ctx, tx, *p.StatusName)
			if stErr != nil {
				return stErr
			}
			statusID = st.ID
		}

		typ := current.Type
		if p.Type != nil {
			typ = *p.Type
		}
		title := current.Title
		if p.Title != nil {
			title = *p.Title
		}
		description := current.Description
		if p.Description != nil {
			description = *p.Description
		}
		content := current.Content
		if p.Content != nil {
			content = *p.Content
		}
		priority := current.Priority
		if p.Priority != nil {
			priority = *p.Priority
		}
		category := current.Category
		if p.Category != nil {
			category = *p.Category
		}

		startDate := current.StartDate
		if p.ClearStartDate {
			startDate = nil
		} else if p.StartDate != nil {
			startDate = p.StartDate
		}
		endDate := current.EndDate
		if p.ClearEndDate {
			endDate = nil
		} else if p.EndDate != nil {
			endDate = p.EndDate
		}

		versionStored := nullableString("")
		if current.Version != "" {
			if norm, nErr := kbtypes.NormalizeVersion(current.Version); nErr == nil {
				versionStored = nullableString(norm)
			}
		}
		if p.Version != nil {
			versionStored = nullableString(*p.Version)
		}

		aiSummary, searchIndex, embedding := current.AISummary, current.SearchIndex, current.Embedding
		if p.RecomputeEnrichment {
			aiSummary = p.AISummary
			searchIndex = p.SearchIndex
			embedding = p.Embedding
		}

		now := time.Now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE items SET type = ?, title = ?, description = ?, content = ?, priority = ?,
				status_id = ?, category = ?, start_date = ?, end_date = ?, version = ?,
				ai_summary = ?, search_index = ?, embedding = ?, updated_at = ?
			WHERE id = ?
		`,
			typ, title, description, content, string(priority), statusID, category,
			formatNullableTime(startDate), formatNullableTime(endDate), versionStored,
			aiSummary, searchIndex, embedding, formatTime(now), p.ID,
		); err != nil {
			return kberrors.Wrap("update item", err)
		}

		if p.RecomputeEnrichment {
			if err := replaceItemKeywordsTx(ctx, tx, p.ID, p.Keywords); err != nil {
				return err
			}
			if err := replaceItemConceptsTx(ctx, tx, p.ID, p.Concepts); err != nil {
				return err
			}
		}

		if p.Tags != nil {
			tags, tagErr := ensureTagsTx(ctx, tx, *p.Tags)
			if tagErr != nil {
				return tagErr
			}
			if err := replaceItemTagsTx(ctx, tx, p.ID, tags); err != nil {
				return err
			}
		}

		if p.Related != nil {
			if err := replaceRelationsTx(ctx, tx, p.ID, *p.Related); err != nil {
				return err
			}
		}

		item, err := getItemTx(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	return updated, err
}
