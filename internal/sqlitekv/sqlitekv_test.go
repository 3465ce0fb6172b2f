package sqlitekv

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/query"
)

// openTestStore opens a fresh on-disk database under t.TempDir(), one
// per test, so migrations and status seeding run from a clean slate
// without tests stepping on each other's data.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shirokuma.db")
	store, err := Open(context.Background(), fmt.Sprintf("file:%s", path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreateItem(t *testing.T, s *Store, title string) *kbtypes.Item {
	t.Helper()
	item, err := s.CreateItem(context.Background(), CreateItemParams{
		Type:       "issue",
		Title:      title,
		Priority:   kbtypes.PriorityMedium,
		StatusName: kbtypes.DefaultStatusName,
	})
	require.NoError(t, err)
	return item
}

func TestOpenSeedsDefaultStatuses(t *testing.T) {
	s := openTestStore(t)
	statuses, err := s.ListStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, len(kbtypes.DefaultStatuses))
	assert.Equal(t, "Open", statuses[0].Name)
}

func TestOpenRejectsEmptyDatabaseURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestCreateAndGetItemRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateItem(ctx, CreateItemParams{
		Type:        "issue",
		Title:       "Migrate widget store",
		Description: "desc",
		Content:     "content",
		Priority:    kbtypes.PriorityHigh,
		StatusName:  "Open",
		Tags:        []string{"backend", "backend"}, // duplicate collapses
		Keywords:    []kbtypes.ItemKeyword{{Word: "widget", Weight: 0.9}},
		Concepts:    []kbtypes.ItemConcept{{Name: "migration", Confidence: 0.8}},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Open", created.Status.Name)
	require.Len(t, created.Tags, 1)
	assert.Equal(t, "backend", created.Tags[0].Name)
	require.Len(t, created.Keywords, 1)
	assert.Equal(t, "widget", created.Keywords[0].Word)

	fetched, err := s.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, fetched.Title)
	assert.Equal(t, created.Priority, fetched.Priority)
}

func TestGetItemNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetItem(context.Background(), 99999)
	assert.Error(t, err)
}

func TestGetStatusByNameCaseInsensitiveFallback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exact, err := s.GetStatusByName(ctx, "Open")
	require.NoError(t, err)
	assert.Equal(t, "Open", exact.Name)

	fallback, err := s.GetStatusByName(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, "Open", fallback.Name)

	_, err = s.GetStatusByName(ctx, "does-not-exist")
	assert.Error(t, err)
}

func TestAddRelationsAreSymmetric(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustCreateItem(t, s, "a")
	b := mustCreateItem(t, s, "b")

	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{b.ID}))

	forward, err := s.GetRelatedIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, forward)

	backward, err := s.GetRelatedIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, backward)
}

func TestAddRelationsIgnoresUnknownAndSelfTargets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustCreateItem(t, s, "a")

	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{a.ID, 999999}))

	related, err := s.GetRelatedIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestAddRelationsIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustCreateItem(t, s, "a")
	b := mustCreateItem(t, s, "b")

	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{b.ID}))
	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{b.ID}))

	related, err := s.GetRelatedIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, related, 1)
}

func TestDeleteItemCascadesJoinRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustCreateItem(t, s, "a")
	b := mustCreateItem(t, s, "b")
	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{b.ID}))

	require.NoError(t, s.DeleteItem(ctx, a.ID))

	_, err := s.GetItem(ctx, a.ID)
	assert.Error(t, err)

	remaining, err := s.GetRelatedIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining, "no dangling join row should reference the deleted item")
}

func TestDeleteItemNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.DeleteItem(context.Background(), 424242)
	assert.Error(t, err)
}

func TestUpdateItemPartialUpdateLeavesOmittedFieldsUnchanged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, "original title")

	newTitle := "new title"
	updated, err := s.UpdateItem(ctx, UpdateItemParams{ID: item.ID, Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, item.Priority, updated.Priority)
	assert.Equal(t, item.Status.Name, updated.Status.Name)
}

func TestUpdateItemRecomputesEnrichmentOnlyWhenFlagged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, "original title")

	category := "filed under something else"
	updated, err := s.UpdateItem(ctx, UpdateItemParams{
		ID:                  item.ID,
		Category:            &category,
		RecomputeEnrichment: false,
		Keywords:            []kbtypes.ItemKeyword{{Word: "should-not-apply", Weight: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Keywords, "enrichment must not change without the recompute flag")

	newTitle := "retitled"
	updated, err = s.UpdateItem(ctx, UpdateItemParams{
		ID:                  item.ID,
		Title:               &newTitle,
		RecomputeEnrichment: true,
		Keywords:            []kbtypes.ItemKeyword{{Word: "applied", Weight: 1}},
		AISummary:           "fresh summary",
	})
	require.NoError(t, err)
	require.Len(t, updated.Keywords, 1)
	assert.Equal(t, "applied", updated.Keywords[0].Word)
	assert.Equal(t, "fresh summary", updated.AISummary)
}

func TestUpdateItemTagsReplacesFullSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	item, err := s.CreateItem(ctx, CreateItemParams{
		Type: "issue", Title: "t", Priority: kbtypes.PriorityMedium, StatusName: "Open",
		Tags: []string{"a", "b"},
	})
	require.NoError(t, err)

	newTags := []string{"c"}
	updated, err := s.UpdateItem(ctx, UpdateItemParams{ID: item.ID, Tags: &newTags})
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "c", updated.Tags[0].Name)
}

func TestUpdateItemRelatedDiffsSymmetrically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustCreateItem(t, s, "a")
	b := mustCreateItem(t, s, "b")
	c := mustCreateItem(t, s, "c")
	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{b.ID}))

	newRelated := []int64{c.ID}
	_, err := s.UpdateItem(ctx, UpdateItemParams{ID: a.ID, Related: &newRelated})
	require.NoError(t, err)

	aRelated, err := s.GetRelatedIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, aRelated)

	bRelated, err := s.GetRelatedIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, bRelated, "removing a->b must remove the symmetric b->a row too")

	cRelated, err := s.GetRelatedIDs(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, cRelated)
}

func TestListItemsFiltersByType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateItem(ctx, CreateItemParams{Type: "bug", Title: "b1", Priority: kbtypes.PriorityLow, StatusName: "Open"})
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, CreateItemParams{Type: "feature", Title: "f1", Priority: kbtypes.PriorityLow, StatusName: "Open"})
	require.NoError(t, err)

	items, err := s.ListItems(ctx, ListItemsParams{Query: query.Query{Types: []string{"bug"}}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].Title)
}

func TestSearchItemsMatchesFreeText(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateItem(ctx, CreateItemParams{
		Type: "issue", Title: "database migration plan", Priority: kbtypes.PriorityMedium, StatusName: "Open",
	})
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, CreateItemParams{
		Type: "issue", Title: "unrelated topic", Priority: kbtypes.PriorityMedium, StatusName: "Open",
	})
	require.NoError(t, err)

	results, err := s.SearchItems(ctx, SearchParams{QueryString: "migration"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "database migration plan", results[0].Title)
}

func TestGetStatsGroupsByTypeStatusPriority(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateItem(ctx, CreateItemParams{Type: "bug", Title: "b1", Priority: kbtypes.PriorityHigh, StatusName: "Open", Tags: []string{"x"}})
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, CreateItemParams{Type: "bug", Title: "b2", Priority: kbtypes.PriorityLow, StatusName: "Closed", Tags: []string{"x"}})
	require.NoError(t, err)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ByType["bug"])
	assert.Equal(t, 1, stats.ByStatus["Open"])
	assert.Equal(t, 1, stats.ByStatus["Closed"])
	assert.Equal(t, 1, stats.ByPriority["HIGH"])
	require.Len(t, stats.TopTags, 1)
	assert.Equal(t, 2, stats.TopTags[0].Count)
}

func TestGetCurrentStateNilWhenNoneExists(t *testing.T) {
	s := openTestStore(t)
	state, err := s.GetCurrentState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestUpdateCurrentStateComputesMetricsAndDeactivatesPrior(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustCreateItem(t, s, "a")
	b := mustCreateItem(t, s, "b")
	require.NoError(t, s.AddRelations(ctx, a.ID, []int64{b.ID}))

	first, err := s.UpdateCurrentState(ctx, UpdateCurrentStateParams{Content: "line one\nline two"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Metrics.TotalItems)
	assert.Equal(t, 1, first.Metrics.TotalRelations)
	assert.Equal(t, 0, first.Metrics.IsolatedNodes)

	second, err := s.UpdateCurrentState(ctx, UpdateCurrentStateParams{Content: "updated"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	current, err := s.GetCurrentState(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

func TestEnsureTagsGetOrCreateDeduplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureTags(ctx, []string{"alpha", "beta", "alpha"})
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := s.EnsureTags(ctx, []string{"alpha"})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID, "re-ensuring an existing tag must return the same id")
}

func TestListItemSignaturesExcludesQueryItemAndFiltersByType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, err := s.CreateItem(ctx, CreateItemParams{Type: "bug", Title: "a", Priority: kbtypes.PriorityMedium, StatusName: "Open"})
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, CreateItemParams{Type: "feature", Title: "c", Priority: kbtypes.PriorityMedium, StatusName: "Open"})
	require.NoError(t, err)

	sigs, err := s.ListItemSignatures(ctx, a.ID, []string{"bug"})
	require.NoError(t, err)
	assert.Empty(t, sigs, "the only bug-typed item is the excluded query item itself")
}
