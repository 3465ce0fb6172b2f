package enrichment

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/shirokuma-kb/core/internal/kbtypes"
)

// stopWords is removed before the frequency histogram is built. Small
// and English-only; good enough for a fallback, not a goal in itself.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "have": true,
	"in": true, "into": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "were": true, "will": true, "with": true, "you": true,
}

// fieldWeight blends term frequency across fields: title terms count
// the most, then description, then content.
const (
	titleFieldWeight       = 3.0
	descriptionFieldWeight = 2.0
	contentFieldWeight     = 1.0
)

// FallbackProvider is the deterministic fallback used when the
// primary enrichment provider is unavailable: a frequency histogram
// for keywords, no concepts, a zero embedding, and a
// first-200-characters summary.
type FallbackProvider struct{}

// NewFallbackProvider creates a FallbackProvider.
func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{}
}

// Generate is pure and deterministic for identical inputs.
func (FallbackProvider) Generate(_ context.Context, in Input) (Result, error) {
	freq := make(map[string]float64)
	addTerms(freq, in.Title, titleFieldWeight)
	addTerms(freq, in.Description, descriptionFieldWeight)
	addTerms(freq, in.Content, contentFieldWeight)

	// A term's score is the weight of the highest-ranked field it appears
	// in, plus a fraction below 1 that grows with its weighted frequency:
	// every title term outranks every description-only term, which in
	// turn outranks every content-only term.
	scores := make(map[string]float64, len(freq))
	fields := []struct {
		text   string
		weight float64
	}{{in.Content, contentFieldWeight}, {in.Description, descriptionFieldWeight}, {in.Title, titleFieldWeight}}
	for _, field := range fields {
		for _, word := range tokenizeWords(field.text) {
			if f, ok := freq[word]; ok {
				scores[word] = field.weight + f/(f+1)
			}
		}
	}

	keywords := topKeywords(scores, maxKeywords)

	words := make([]string, len(keywords))
	for i, kw := range keywords {
		words[i] = kw.Word
	}

	summary := in.Title + " " + in.Description + " " + in.Content
	summary = strings.TrimSpace(summary)
	if len(summary) > 200 {
		summary = summary[:200]
	}

	return Result{
		Keywords:    keywords,
		Concepts:    nil,
		Summary:     summary,
		SearchIndex: strings.Join(words, " "),
		Embedding:   kbtypes.ZeroEmbedding(),
	}, nil
}

func addTerms(scores map[string]float64, text string, weight float64) {
	for _, word := range tokenizeWords(text) {
		if stopWords[word] {
			continue
		}
		scores[word] += weight
	}
}

func tokenizeWords(text string) []string {
	var words []string
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			words = append(words, strings.ToLower(sb.String()))
			sb.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

// topKeywords ranks scores descending, breaking ties alphabetically
// for determinism, keeps the top n, and normalizes weights into (0,1]
// by dividing by the maximum score.
func topKeywords(scores map[string]float64, n int) []kbtypes.ItemKeyword {
	if len(scores) == 0 {
		return nil
	}
	words := make([]string, 0, len(scores))
	maxScore := 0.0
	for w, s := range scores {
		words = append(words, w)
		if s > maxScore {
			maxScore = s
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if scores[words[i]] != scores[words[j]] {
			return scores[words[i]] > scores[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}

	out := make([]kbtypes.ItemKeyword, len(words))
	for i, w := range words {
		weight := scores[w] / maxScore
		if weight <= 0 {
			weight = 0.01
		}
		out[i] = kbtypes.ItemKeyword{Word: w, Weight: weight}
	}
	return out
}
