package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shirokuma-kb/core/internal/kbtypes"
)

func TestNewAnthropicProviderRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicProvider("")
	assert.ErrorIs(t, err, errAPIKeyRequired)
}

func TestNewAnthropicProviderEnvVarOverridesArgument(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	p, err := NewAnthropicProvider("explicit-key")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestParseEnrichmentResponseExtractsJSONFromSurroundingText(t *testing.T) {
	text := `Sure, here you go:
{"keywords":[{"word":"widget","weight":0.9}],"concepts":[{"name":"storage","confidence":0.7}],"summary":"a summary"}
Hope that helps!`
	resp, err := parseEnrichmentResponse(text)
	require.NoError(t, err)
	require.Len(t, resp.Keywords, 1)
	assert.Equal(t, "widget", resp.Keywords[0].Word)
	assert.Equal(t, "a summary", resp.Summary)
}

func TestParseEnrichmentResponseErrorsWithoutJSONObject(t *testing.T) {
	_, err := parseEnrichmentResponse("no json here")
	assert.Error(t, err)
}

func TestParseEnrichmentResponseClampsKeywordsAndConceptsToLimits(t *testing.T) {
	var keywords []kbtypes.ItemKeyword
	for i := 0; i < maxKeywords+5; i++ {
		keywords = append(keywords, kbtypes.ItemKeyword{Word: "w", Weight: 0.5})
	}
	resp := enrichmentResponse{Keywords: keywords}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	parsed, err := parseEnrichmentResponse(string(data))
	require.NoError(t, err)
	assert.Len(t, parsed.Keywords, maxKeywords)
}

func TestParseEnrichmentResponseTruncatesOverlongSummary(t *testing.T) {
	long := make([]byte, maxSummary+50)
	for i := range long {
		long[i] = 'a'
	}
	resp := enrichmentResponse{Summary: string(long)}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	parsed, err := parseEnrichmentResponse(string(data))
	require.NoError(t, err)
	assert.Len(t, parsed.Summary, maxSummary)
}

func TestClampUnitClampsToOpenClosedUnitRange(t *testing.T) {
	assert.Equal(t, 0.01, clampUnit(0))
	assert.Equal(t, 0.01, clampUnit(-5))
	assert.Equal(t, 1.0, clampUnit(5))
	assert.Equal(t, 0.5, clampUnit(0.5))
}

func TestPseudoEmbeddingIsDeterministic(t *testing.T) {
	keywords := []kbtypes.ItemKeyword{{Word: "widget", Weight: 0.8}}
	concepts := []kbtypes.ItemConcept{{Name: "storage", Confidence: 0.6}}

	e1 := pseudoEmbedding(keywords, concepts)
	e2 := pseudoEmbedding(keywords, concepts)
	assert.Equal(t, e1, e2)
}

func TestPseudoEmbeddingEmptyInputsYieldZeroEmbedding(t *testing.T) {
	assert.Equal(t, kbtypes.ZeroEmbedding(), pseudoEmbedding(nil, nil))
}

func TestPseudoEmbeddingDifferentInputsProduceDifferentVectors(t *testing.T) {
	a := pseudoEmbedding([]kbtypes.ItemKeyword{{Word: "alpha", Weight: 1}}, nil)
	b := pseudoEmbedding([]kbtypes.ItemKeyword{{Word: "omega", Weight: 1}}, nil)
	assert.NotEqual(t, a, b)
}

func TestIsRetryableNilErrorIsFalse(t *testing.T) {
	assert.False(t, isRetryable(nil))
}

func TestIsRetryableExcludesContextCancellation(t *testing.T) {
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(context.DeadlineExceeded))
}

type stubTimeoutNetError struct{}

func (stubTimeoutNetError) Error() string   { return "stub timeout" }
func (stubTimeoutNetError) Timeout() bool   { return true }
func (stubTimeoutNetError) Temporary() bool { return true }

func TestIsRetryableIncludesNetTimeout(t *testing.T) {
	assert.True(t, isRetryable(stubTimeoutNetError{}))
}

func TestIsRetryableExcludesUnrelatedErrors(t *testing.T) {
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestRenderPromptIncludesOptionalSections(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	p, err := NewAnthropicProvider("")
	require.NoError(t, err)

	withDescription, err := p.renderPrompt(Input{Title: "T", Description: "D"})
	require.NoError(t, err)
	assert.Contains(t, withDescription, "**Description:**")
	assert.NotContains(t, withDescription, "**Content:**")

	titleOnly, err := p.renderPrompt(Input{Title: "T"})
	require.NoError(t, err)
	assert.NotContains(t, titleOnly, "**Description:**")
}
