package related

import (
	"context"
	"sort"
	"strings"

	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// candidateScore holds each component score for one candidate before
// combination, so searchReason can name the dominant component(s)
// after the final weighting is known.
type candidateScore struct {
	item         *kbtypes.Item
	keyword      float64
	hasKeyword   bool
	concept      float64
	hasConcept   bool
	embedding    float64
	hasEmbedding bool
}

// scoredResult pairs a ScoredItem with the embedding component used
// for the tie-break, kept alongside rather than recomputed.
type scoredResult struct {
	ScoredItem
	embeddingScore float64
}

// hybridMode scores every candidate in the pool against the query
// item's keywords, concepts, and embedding.
func (e *Engine) hybridMode(ctx context.Context, p Params) (Result, error) {
	queryItem, err := e.store.GetItem(ctx, p.ID)
	if err != nil {
		return Result{}, err
	}

	candidates, err := e.store.ListItemSignatures(ctx, p.ID, p.Types)
	if err != nil {
		return Result{}, err
	}

	queryEmbedding := kbtypes.DequantizeEmbedding(queryItem.Embedding) // nil if absent; degrades embedding score to 0

	scores := make([]candidateScore, 0, len(candidates))
	for _, cand := range candidates {
		cs := candidateScore{}

		if kwScore, ok := keywordScore(queryItem.Keywords, cand.Keywords); ok && kwScore >= p.Thresholds.MinKeywordWeight {
			cs.keyword, cs.hasKeyword = kwScore, true
		}
		if cScore, ok := conceptScore(queryItem.Concepts, cand.Concepts); ok && cScore >= p.Thresholds.MinConfidence {
			cs.concept, cs.hasConcept = cScore, true
		}
		if queryEmbedding != nil && len(cand.Embedding) > 0 {
			sim := kbtypes.CosineSimilarity(queryEmbedding, kbtypes.DequantizeEmbedding(cand.Embedding))
			if sim >= p.Thresholds.MinSimilarity {
				cs.embedding, cs.hasEmbedding = sim, true
			}
		}

		item, err := e.store.GetItem(ctx, cand.ID)
		if err != nil {
			continue // candidate deleted between listing and scoring; skip it
		}
		cs.item = item
		scores = append(scores, cs)
	}

	results := combineScores(scores, p.Strategy, p.Weights)

	sort.Slice(results, func(i, j int) bool {
		if results[i].SearchScore != results[j].SearchScore {
			return results[i].SearchScore > results[j].SearchScore
		}
		if results[i].embeddingScore != results[j].embeddingScore {
			return results[i].embeddingScore > results[j].embeddingScore
		}
		return results[i].Item.ID < results[j].Item.ID
	})

	limit := p.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit < len(results) {
		results = results[:limit]
	}

	out := make([]ScoredItem, len(results))
	for i, r := range results {
		out[i] = r.ScoredItem
	}
	return Result{Items: out}, nil
}

// keywordScore computes sum(min(w_query_i, w_cand_i)) over shared
// keywords, normalized by sum(w_query). ok is false when the query
// item has no keywords at all (score is undefined, not zero).
func keywordScore(query, candidate []kbtypes.ItemKeyword) (float64, bool) {
	if len(query) == 0 {
		return 0, false
	}
	candWeights := make(map[string]float64, len(candidate))
	for _, kw := range candidate {
		candWeights[kw.Word] = kw.Weight
	}
	var sumShared, sumQuery float64
	for _, kw := range query {
		sumQuery += kw.Weight
		if cw, ok := candWeights[kw.Word]; ok {
			sumShared += min(kw.Weight, cw)
		}
	}
	if sumQuery == 0 {
		return 0, false
	}
	return sumShared / sumQuery, true
}

// conceptScore is keywordScore's analogue over concept confidences.
func conceptScore(query, candidate []kbtypes.ItemConcept) (float64, bool) {
	if len(query) == 0 {
		return 0, false
	}
	candConf := make(map[string]float64, len(candidate))
	for _, c := range candidate {
		candConf[c.Name] = c.Confidence
	}
	var sumShared, sumQuery float64
	for _, c := range query {
		sumQuery += c.Confidence
		if cc, ok := candConf[c.Name]; ok {
			sumShared += min(c.Confidence, cc)
		}
	}
	if sumQuery == 0 {
		return 0, false
	}
	return sumShared / sumQuery, true
}

// combineScores applies strategy to each candidate's component scores
// and builds the human-readable searchReason naming the dominant
// component(s).
func combineScores(scores []candidateScore, strategy string, weights Weights) []scoredResult {
	out := make([]scoredResult, 0, len(scores))
	for _, cs := range scores {
		var combined float64
		var reason string
		switch strategy {
		case "keywords":
			combined, reason = cs.keyword, "keyword overlap"
		case "concepts":
			combined, reason = cs.concept, "concept overlap"
		case "embedding":
			combined, reason = cs.embedding, "embedding similarity"
		default: // "hybrid"
			combined, reason = weightedCombine(cs, weights)
		}
		if combined <= 0 {
			continue
		}
		out = append(out, scoredResult{
			ScoredItem:     ScoredItem{Item: cs.item, SearchScore: combined, SearchReason: reason},
			embeddingScore: cs.embedding,
		})
	}
	return out
}

// weightedCombine renormalizes weights to sum to 1 (all-zero weights
// default to 1/3 each) and names every component
// contributing at least a third of the total as the dominant reason.
// Missing component scores count as 0.
func weightedCombine(cs candidateScore, weights Weights) (float64, string) {
	kw, cp, em := weights.Keywords, weights.Concepts, weights.Embedding
	if kw == 0 && cp == 0 && em == 0 {
		kw, cp, em = 1.0/3, 1.0/3, 1.0/3
	}
	total := kw + cp + em
	if total == 0 {
		return 0, ""
	}
	kw, cp, em = kw/total, cp/total, em/total

	keywordContribution := kw * valueIf(cs.hasKeyword, cs.keyword)
	conceptContribution := cp * valueIf(cs.hasConcept, cs.concept)
	embeddingContribution := em * valueIf(cs.hasEmbedding, cs.embedding)
	combined := keywordContribution + conceptContribution + embeddingContribution

	var dominant []string
	threshold := combined / 3
	if keywordContribution >= threshold && cs.hasKeyword {
		dominant = append(dominant, "keyword overlap")
	}
	if conceptContribution >= threshold && cs.hasConcept {
		dominant = append(dominant, "concept overlap")
	}
	if embeddingContribution >= threshold && cs.hasEmbedding {
		dominant = append(dominant, "embedding similarity")
	}
	if len(dominant) == 0 {
		return combined, "hybrid match"
	}
	return combined, strings.Join(dominant, ", ")
}

func valueIf(ok bool, v float64) float64 {
	if !ok {
		return 0
	}
	return v
}
