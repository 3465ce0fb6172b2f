package related

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shirokuma-kb/core/internal/kbtypes"
)

func TestKeywordScorePerfectOverlap(t *testing.T) {
	query := []kbtypes.ItemKeyword{{Word: "go", Weight: 1.0}, {Word: "sql", Weight: 0.5}}
	candidate := []kbtypes.ItemKeyword{{Word: "go", Weight: 1.0}, {Word: "sql", Weight: 0.5}}

	score, ok := keywordScore(query, candidate)
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestKeywordScorePartialOverlapUsesMin(t *testing.T) {
	query := []kbtypes.ItemKeyword{{Word: "go", Weight: 1.0}}
	candidate := []kbtypes.ItemKeyword{{Word: "go", Weight: 0.4}}

	score, ok := keywordScore(query, candidate)
	require.True(t, ok)
	assert.InDelta(t, 0.4, score, 1e-9)
}

func TestKeywordScoreNoOverlap(t *testing.T) {
	query := []kbtypes.ItemKeyword{{Word: "go", Weight: 1.0}}
	candidate := []kbtypes.ItemKeyword{{Word: "rust", Weight: 1.0}}

	score, ok := keywordScore(query, candidate)
	require.True(t, ok)
	assert.Equal(t, 0.0, score)
}

func TestKeywordScoreUndefinedWhenQueryHasNone(t *testing.T) {
	_, ok := keywordScore(nil, []kbtypes.ItemKeyword{{Word: "go", Weight: 1.0}})
	assert.False(t, ok)
}

func TestConceptScoreMirrorsKeywordScore(t *testing.T) {
	query := []kbtypes.ItemConcept{{Name: "databases", Confidence: 0.8}}
	candidate := []kbtypes.ItemConcept{{Name: "databases", Confidence: 0.5}}

	score, ok := conceptScore(query, candidate)
	require.True(t, ok)
	assert.InDelta(t, 0.5/0.8, score, 1e-9)
}

func TestWeightedCombineDefaultsToEqualThirds(t *testing.T) {
	cs := candidateScore{keyword: 0.9, hasKeyword: true}
	combined, reason := weightedCombine(cs, Weights{})
	assert.InDelta(t, 0.9/3, combined, 1e-9)
	assert.Contains(t, reason, "keyword overlap")
}

func TestWeightedCombineRenormalizesOverSuppliedWeights(t *testing.T) {
	cs := candidateScore{keyword: 1.0, hasKeyword: true, concept: 1.0, hasConcept: true}
	combined, _ := weightedCombine(cs, Weights{Keywords: 1, Concepts: 1})
	assert.InDelta(t, 1.0, combined, 1e-9)
}

func TestWeightedCombineMissingComponentCountsAsZero(t *testing.T) {
	cs := candidateScore{keyword: 1.0, hasKeyword: true}
	combined, reason := weightedCombine(cs, Weights{Keywords: 1, Concepts: 1, Embedding: 1})
	assert.InDelta(t, 1.0/3, combined, 1e-9)
	assert.Equal(t, "keyword overlap", reason)
}

func TestWeightedCombineNamesMultipleDominantComponents(t *testing.T) {
	cs := candidateScore{
		keyword: 1.0, hasKeyword: true,
		concept: 1.0, hasConcept: true,
	}
	_, reason := weightedCombine(cs, Weights{Keywords: 1, Concepts: 1})
	assert.Contains(t, reason, "keyword overlap")
	assert.Contains(t, reason, "concept overlap")
}

func TestWeightedCombineNoSignalIsHybridMatchNever(t *testing.T) {
	cs := candidateScore{}
	combined, _ := weightedCombine(cs, Weights{})
	assert.Equal(t, 0.0, combined)
}

func TestCombineScoresDropsZeroAndBelow(t *testing.T) {
	scores := []candidateScore{
		{item: &kbtypes.Item{ID: 1}},
		{item: &kbtypes.Item{ID: 2}, keyword: 0.5, hasKeyword: true},
	}
	out := combineScores(scores, "keywords", Weights{})
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].Item.ID)
}

func TestCombineScoresStrategySelection(t *testing.T) {
	cs := []candidateScore{{item: &kbtypes.Item{ID: 1}, embedding: 0.7, hasEmbedding: true}}
	out := combineScores(cs, "embedding", Weights{})
	require.Len(t, out, 1)
	assert.Equal(t, "embedding similarity", out[0].SearchReason)
	assert.InDelta(t, 0.7, out[0].SearchScore, 1e-9)
}
