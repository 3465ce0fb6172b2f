// Package enrichment implements the enrichment service (C2): given an
// item's title, description, and content, it derives keywords,
// concepts, a summary, a search index, and a quantized embedding.
package enrichment

import (
	"context"

	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// Input is the text the provider derives enrichment from.
type Input struct {
	Title       string
	Description string
	Content     string
}

// Result is everything Generator.Generate produces from an Input.
type Result struct {
	Keywords    []kbtypes.ItemKeyword
	Concepts    []kbtypes.ItemConcept
	Summary     string
	SearchIndex string
	Embedding   []byte
}

const (
	maxKeywords = 20
	maxConcepts = 10
	maxSummary  = 500
)

// Provider derives a Result from Input. Implementations must be
// deterministic for identical inputs where the contract requires it
// (the fallback provider always is; the LLM provider is best-effort).
type Provider interface {
	Generate(ctx context.Context, in Input) (Result, error)
}

// Generator orchestrates enrichment generation: it tries the primary
// provider and, on any failure, falls back to a deterministic provider
// so that a failed enrichment provider never blocks the primary write.
type Generator struct {
	primary  Provider
	fallback Provider
}

// NewGenerator pairs a primary provider with the deterministic
// fallback. primary may be nil, in which case the fallback runs alone.
func NewGenerator(primary Provider) *Generator {
	return &Generator{primary: primary, fallback: NewFallbackProvider()}
}

// Generate runs the primary provider if configured, logging and
// degrading to the fallback on any error. It never returns an error:
// the caller always gets usable (if degraded) enrichment.
func (g *Generator) Generate(ctx context.Context, in Input) Result {
	if g.primary != nil {
		result, err := g.primary.Generate(ctx, in)
		if err == nil {
			return result
		}
		logEnrichmentFailure(err)
	}

	result, err := g.fallback.Generate(ctx, in)
	if err != nil {
		// The fallback is pure and deterministic; reaching this means a
		// logic bug, not an external failure. Degrade to an empty result
		// rather than propagate, since enrichment must never fail a write.
		logEnrichmentFailure(err)
		return Result{Embedding: kbtypes.ZeroEmbedding()}
	}
	return result
}
