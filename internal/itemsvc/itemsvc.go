// Package itemsvc implements the item service (C3): the public write
// API and the only component that may mutate Items. It validates
// input, orchestrates enrichment, and delegates persistence to the
// storage adapter, then fires the optional file-mirror best-effort.
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

const maxTitleLen = 200

// Mirror is the subset of the file-mirror (C7) the item service
// drives: a best-effort, post-commit side effect that never blocks or
// fails a write.
type Mirror interface {
	MirrorItem(item *kbtypes.Item, previousTitle string)
	RemoveItem(item *kbtypes.Item)
}

// Service is the item service.
type Service struct {
	store         *sqlitekv.Store
	enrich        *enrichment.Generator
	mirror        Mirror
	defaultStatus string
}

// New builds a Service. mirror may be nil when the file-mirror (C7) is
// not activated.
func New(store *sqlitekv.Store, enrich *enrichment.Generator, mirror Mirror, defaultStatus string) *Service {
	if defaultStatus == "" {
		defaultStatus = "Open"
	}
	return &Service{store: store, enrich: enrich, mirror: mirror, defaultStatus: defaultStatus}
}

// CreateItemInput is the create_item request body.
type CreateItemInput struct {
	Type        string
	Title       string
	Description string
	Content     string
	Status      string
	Priority    kbtypes.Priority
	Category    string
	StartDate   *time.Time
	EndDate     *time.Time
	Version     string
	Tags        []string
	Related     []int64
}

// CreateItem validates input, computes enrichment from the supplied
// text, and persists the item and its joins in one storage
// transaction.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (*kbtypes.Item, error) {
	if !kbtypes.ValidType(in.Type) {
		return nil, kberrors.Invalid("type must match ^[a-z0-9_]+$, got %q", in.Type)
	}
	title := strings.TrimSpace(in.Title)
	if len(title) == 0 || len(title) > maxTitleLen {
		return nil, kberrors.Invalid("title must be 1..%d characters", maxTitleLen)
	}
	priority := in.Priority
	if priority == "" {
		priority = kbtypes.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, kberrors.Invalid("priority %q is not one of %v", priority, kbtypes.ValidPriorities)
	}
	statusName := in.Status
	if statusName == "" {
		statusName = s.defaultStatus
	}
	version, err := normalizeOptionalVersion(in.Version)
	if err != nil {
		return nil, err
	}

	result := s.enrich.Generate(ctx, enrichment.Input{
		Title:       title,
		Description: in.Description,
		Content:     in.Content,
	})

	item, err := s.store.CreateItem(ctx, sqlitekv.CreateItemParams{
		Type:        in.Type,
		Title:       title,
		Description: in.Description,
		Content:     in.Content,
		Priority:    priority,
		StatusName:  statusName,
		Category:    in.Category,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Version:     version,
		Tags:        in.Tags,
		Keywords:    result.Keywords,
		Concepts:    result.Concepts,
		AISummary:   result.Summary,
		SearchIndex: result.SearchIndex,
		Embedding:   result.Embedding,
		RelatedIDs:  in.Related,
	})
	if err != nil {
		return nil, err
	}

	if s.mirror != nil {
		s.mirror.MirrorItem(item, "")
	}
	return item, nil
}

// GetItem returns an item by id with SearchIndex and Embedding
// stripped (AISummary is kept), matching the public get_item
// projection.
func (s *Service) GetItem(ctx context.Context, id int64) (*kbtypes.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	stripInternalFields(item)
	return item, nil
}

func stripInternalFields(item *kbtypes.Item) {
	item.SearchIndex = ""
	item.Embedding = nil
}

func normalizeOptionalVersion(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	norm, err := kbtypes.NormalizeVersion(v)
	if err != nil {
		return "", kberrors.Invalid("version %q: %v", v, err)
	}
	return norm, nil
}
