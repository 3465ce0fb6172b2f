// Package related implements the related-item engine (C5): graph BFS
// over ItemRelation for structural expansion, and a hybrid scorer that
// ranks candidates by keyword overlap, concept overlap, and embedding
// similarity.
package related

import (
	"context"

	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/sqlitekv"
)

const defaultLimit = 10

// Edge is one traversed or considered relation in a result.
type Edge struct {
	Source int64
	Target int64
}

// ScoredItem is one item in a result, carrying its score and reason
// when the query ran in hybrid scoring mode.
type ScoredItem struct {
	Item         *kbtypes.Item
	SearchScore  float64
	SearchReason string
}

// Result is get_related_items' return shape: the reached/ranked items
// plus the edges that connect them.
type Result struct {
	Items []ScoredItem
	Edges []Edge
}

// Weights is the per-component blend hybrid strategy uses. When all
// three are zero each defaults to 1/3; otherwise the supplied values
// are renormalized to sum to 1, and a zero weight drops its component.
type Weights struct {
	Keywords  float64
	Concepts  float64
	Embedding float64
}

// Thresholds gate each component score before combination.
type Thresholds struct {
	MinKeywordWeight float64
	MinConfidence    float64
	MinSimilarity    float64
}

// Params is get_related_items' request. Graph mode runs only when
// Strategy is "" and Weights and Thresholds are both zero-valued;
// otherwise hybrid mode runs, using the weighted blend when Strategy
// is "".
type Params struct {
	ID         int64
	Depth      int // 1..3, graph mode only
	Types      []string
	Strategy   string // "", "keywords", "concepts", "embedding", "hybrid"
	Weights    Weights
	Thresholds Thresholds
	Limit      int
}

// Engine runs get_related_items against a Store.
type Engine struct {
	store *sqlitekv.Store
}

// New builds an Engine.
func New(store *sqlitekv.Store) *Engine {
	return &Engine{store: store}
}

// GetRelated dispatches to graph or hybrid mode: hybrid mode runs when
// any of Strategy/Weights/Thresholds was supplied. A zero-valued
// Weights or Thresholds counts as not supplied.
func (e *Engine) GetRelated(ctx context.Context, p Params) (Result, error) {
	if p.Strategy == "" && p.Weights == (Weights{}) && p.Thresholds == (Thresholds{}) {
		return e.graphMode(ctx, p)
	}
	return e.hybridMode(ctx, p)
}
