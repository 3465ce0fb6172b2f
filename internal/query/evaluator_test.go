package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWhereEmptyQueryMatchesEverything(t *testing.T) {
	where := NewEvaluator().BuildWhere(Query{})
	assert.Equal(t, "1=1", where.SQL)
	assert.Empty(t, where.Args)
}

func TestBuildWhereTypeFilter(t *testing.T) {
	where := NewEvaluator().BuildWhere(Query{Types: []string{"bug", "feature"}})
	assert.Equal(t, "type IN (?, ?)", where.SQL)
	assert.Equal(t, []interface{}{"bug", "feature"}, where.Args)
}

func TestBuildWhereStatusFilterLowercasesArgs(t *testing.T) {
	where := NewEvaluator().BuildWhere(Query{Statuses: []string{"Open"}})
	assert.Contains(t, where.SQL, "LOWER(name) IN")
	assert.Equal(t, []interface{}{"open"}, where.Args)
}

func TestBuildWhereCombinesFiltersWithAnd(t *testing.T) {
	where := NewEvaluator().BuildWhere(Query{
		Types:    []string{"bug"},
		Tags:     []string{"backend"},
		FreeText: []string{"urgent"},
	})
	assert.Contains(t, where.SQL, " AND ")
	assert.Len(t, where.Args, 1+1+3) // type arg, tag arg, 3 LIKE args
}

func TestBuildWhereFreeTextUsesLikeAcrossThreeColumns(t *testing.T) {
	where := NewEvaluator().BuildWhere(Query{FreeText: []string{"urgent"}})
	assert.Equal(t, "(title LIKE ? OR description LIKE ? OR content LIKE ?)", where.SQL)
	assert.Equal(t, []interface{}{"%urgent%", "%urgent%", "%urgent%"}, where.Args)
}

func TestBuildWhereCreatedRangeUsesBetween(t *testing.T) {
	q, err := Parse("created:range:2024-01-01..2024-06-30")
	require.NoError(t, err)
	where := NewEvaluator().BuildWhere(q)
	assert.Contains(t, where.SQL, "created_at BETWEEN ? AND ?")
	require.Len(t, where.Args, 2)
}

func TestBuildWhereDateRangeRequiresAtLeastOneBoundSet(t *testing.T) {
	q, err := Parse("date:range:2024-01-01..2024-06-30")
	require.NoError(t, err)
	where := NewEvaluator().BuildWhere(q)
	assert.Contains(t, where.SQL, "start_date IS NOT NULL OR end_date IS NOT NULL")
}
