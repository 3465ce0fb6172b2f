package itemsvc

import (
	"context"
	"strings"
	"time"

	"github.com/shirokuma-kb/core/internal/enrichment"
	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/sqlitekv"
)

// UpdateItemInput is the update_item request body. A nil
// pointer means the field was not supplied and must not change; this
// mirrors sqlitekv.UpdateItemParams' presence semantics directly so
// the enrichment-trigger rule can be computed from the same signal.
type UpdateItemInput struct {
	ID int64

	Type        *string
	Title       *string
	Description *string
	Content     *string
	Priority    *kbtypes.Priority
	Status      *string
	Category    *string

	StartDate      *time.Time
	ClearStartDate bool
	EndDate        *time.Time
	ClearEndDate   bool

	Version *string

	Tags    *[]string
	Related *[]int64
}

// UpdateItem applies a partial update. Enrichment is recomputed iff
// Title, Description, or Content was included in the update, even if
// set to the same value.
func (s *Service) UpdateItem(ctx context.Context, in UpdateItemInput) (*kbtypes.Item, error) {
	current, err := s.store.GetItem(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	previousTitle := current.Title

	if in.Type != nil && !kbtypes.ValidType(*in.Type) {
		return nil, kberrors.Invalid("type must match ^[a-z0-9_]+$, got %q", *in.Type)
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if len(title) == 0 || len(title) > maxTitleLen {
			return nil, kberrors.Invalid("title must be 1..%d characters", maxTitleLen)
		}
		in.Title = &title
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		return nil, kberrors.Invalid("priority %q is not one of %v", *in.Priority, kbtypes.ValidPriorities)
	}

	var normVersion *string
	if in.Version != nil {
		norm, err := normalizeOptionalVersion(*in.Version)
		if err != nil {
			return nil, err
		}
		normVersion = &norm
	}

	recompute := in.Title != nil || in.Description != nil || in.Content != nil
	params := sqlitekv.UpdateItemParams{
		ID:             in.ID,
		Type:           in.Type,
		Title:          in.Title,
		Description:    in.Description,
		Content:        in.Content,
		Priority:       in.Priority,
		StatusName:     in.Status,
		Category:       in.Category,
		StartDate:      in.StartDate,
		ClearStartDate: in.ClearStartDate,
		EndDate:        in.EndDate,
		ClearEndDate:   in.ClearEndDate,
		Version:        normVersion,
		Tags:           in.Tags,
		Related:        in.Related,
	}

	if recompute {
		title := valueOr(in.Title, current.Title)
		description := valueOr(in.Description, current.Description)
		content := valueOr(in.Content, current.Content)

		result := s.enrich.Generate(ctx, enrichment.Input{
			Title:       title,
			Description: description,
			Content:     content,
		})
		params.RecomputeEnrichment = true
		params.Keywords = result.Keywords
		params.Concepts = result.Concepts
		params.AISummary = result.Summary
		params.SearchIndex = result.SearchIndex
		params.Embedding = result.Embedding
	}

	item, err := s.store.UpdateItem(ctx, params)
	if err != nil {
		return nil, err
	}

	if s.mirror != nil {
		s.mirror.MirrorItem(item, previousTitle)
	}
	return item, nil
}

func valueOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}
