package related

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSetEmptyIsNil(t *testing.T) {
	assert.Nil(t, toSet(nil))
}

func TestToSetMembership(t *testing.T) {
	set := toSet([]string{"bug", "feature"})
	assert.True(t, set["bug"])
	assert.True(t, set["feature"])
	assert.False(t, set["task"])
}

func TestDedupeEdgesRemovesRepeats(t *testing.T) {
	edges := []Edge{{Source: 1, Target: 2}, {Source: 1, Target: 2}, {Source: 2, Target: 3}}
	out := dedupeEdges(edges)
	assert.Len(t, out, 2)
	assert.Contains(t, out, Edge{Source: 1, Target: 2})
	assert.Contains(t, out, Edge{Source: 2, Target: 3})
}

func TestDedupeEdgesPreservesDirection(t *testing.T) {
	edges := []Edge{{Source: 1, Target: 2}, {Source: 2, Target: 1}}
	out := dedupeEdges(edges)
	assert.Len(t, out, 2, "A->B and B->A are distinct edges, not duplicates")
}

func TestDedupeEdgesEmptyInput(t *testing.T) {
	assert.Empty(t, dedupeEdges(nil))
}
