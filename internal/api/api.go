// Package api composes the item service, state service, and
// related-item engine into one operation table: create_item, get_item,
// update_item, delete_item, list_items, search_items,
// get_related_items, add_relations, get_current_state,
// update_current_state, get_stats, and get_tags. It is a thin Go-level
// facade only — wire framing, auth, and rate limiting are left to a
// caller such as cmd/shirokuma-server.
package api

import (
	"context"

	"github.com/shirokuma-kb/core/internal/itemsvc"
	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/query"
	"github.com/shirokuma-kb/core/internal/related"
	"github.com/shirokuma-kb/core/internal/sqlitekv"
	"github.com/shirokuma-kb/core/internal/statesvc"
)

// API is the composed set of operations a transport layer drives.
type API struct {
	store   *sqlitekv.Store
	items   *itemsvc.Service
	states  *statesvc.Service
	related *related.Engine
}

// New builds an API over already-constructed services.
func New(store *sqlitekv.Store, items *itemsvc.Service, states *statesvc.Service, relatedEngine *related.Engine) *API {
	return &API{store: store, items: items, states: states, related: relatedEngine}
}

func (a *API) CreateItem(ctx context.Context, in itemsvc.CreateItemInput) (*kbtypes.Item, error) {
	return a.items.CreateItem(ctx, in)
}

func (a *API) GetItem(ctx context.Context, id int64) (*kbtypes.Item, error) {
	return a.items.GetItem(ctx, id)
}

func (a *API) UpdateItem(ctx context.Context, in itemsvc.UpdateItemInput) (*kbtypes.Item, error) {
	return a.items.UpdateItem(ctx, in)
}

func (a *API) DeleteItem(ctx context.Context, id int64) error {
	return a.items.DeleteItem(ctx, id)
}

func (a *API) AddRelations(ctx context.Context, sourceID int64, targetIDs []int64) error {
	return a.items.AddRelations(ctx, sourceID, targetIDs)
}

// ListItemsInput is list_items' request: structured filters only, plus
// sort and pagination.
type ListItemsInput struct {
	Types      []string
	Statuses   []string
	Priorities []string
	Tags       []string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

func (a *API) ListItems(ctx context.Context, in ListItemsInput) ([]kbtypes.ItemSummary, error) {
	return a.store.ListItems(ctx, sqlitekv.ListItemsParams{
		Query: query.Query{
			Types:      in.Types,
			Statuses:   in.Statuses,
			Priorities: in.Priorities,
			Tags:       in.Tags,
		},
		Limit:     in.Limit,
		Offset:    in.Offset,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
	})
}

// SearchItemsInput is search_items' request: a free-form query string
// in the structured-search grammar, plus an additional type
// restriction that intersects (not unions) with any type:value tokens
// inside the query string itself.
type SearchItemsInput struct {
	Query  string
	Types  []string
	Limit  int
	Offset int
}

func (a *API) SearchItems(ctx context.Context, in SearchItemsInput) ([]kbtypes.ItemSummary, error) {
	return a.store.SearchItems(ctx, sqlitekv.SearchParams{
		QueryString: in.Query,
		Types:       in.Types,
		Limit:       in.Limit,
		Offset:      in.Offset,
	})
}

func (a *API) GetRelatedItems(ctx context.Context, p related.Params) (related.Result, error) {
	return a.related.GetRelated(ctx, p)
}

func (a *API) GetCurrentState(ctx context.Context) (*kbtypes.SystemState, error) {
	return a.states.GetCurrentState(ctx)
}

func (a *API) UpdateCurrentState(ctx context.Context, p sqlitekv.UpdateCurrentStateParams) (*kbtypes.SystemState, error) {
	return a.states.UpdateCurrentState(ctx, p)
}

func (a *API) GetStats(ctx context.Context) (sqlitekv.Stats, error) {
	return a.store.GetStats(ctx)
}

func (a *API) GetTags(ctx context.Context) ([]sqlitekv.TagUsage, error) {
	return a.store.ListTags(ctx)
}
