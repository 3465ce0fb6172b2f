package enrichment

import "github.com/shirokuma-kb/core/internal/obs"

// logEnrichmentFailure records a provider failure without surfacing it
// to the caller: enrichment failures stay non-fatal to the write path.
func logEnrichmentFailure(err error) {
	obs.Errorf("enrichment: provider failed, degrading: %v", err)
}
