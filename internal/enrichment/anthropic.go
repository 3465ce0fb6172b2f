package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/obs"
)

const (
	maxRetries      = 3
	initialBackoff  = 1 * time.Second
	defaultModel    = "claude-3-5-haiku-latest"
	instrumentScope = "github.com/shirokuma-kb/core/enrichment"
)

// errAPIKeyRequired is returned when an API key is needed but not provided.
var errAPIKeyRequired = errors.New("anthropic API key required")

// AnthropicProvider derives keywords, concepts, and a summary from an
// LLM call, and a deterministic pseudo-embedding from the resulting
// keyword/concept set — the Messages API has no embeddings endpoint,
// so the embedding component is synthesized rather than requested.
type AnthropicProvider struct {
	client         anthropic.Client
	model          anthropic.Model
	promptTemplate *template.Template
	maxRetries     int
	initialBackoff time.Duration
}

// NewAnthropicProvider builds a provider. Env var ANTHROPIC_API_KEY
// takes precedence over an explicit apiKey argument.
func NewAnthropicProvider(apiKey string) (*AnthropicProvider, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or configure one explicitly", errAPIKeyRequired)
	}

	tmpl, err := template.New("enrichment").Parse(enrichmentPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse enrichment prompt template: %w", err)
	}

	aiMetricsOnce.Do(initAIMetrics)

	return &AnthropicProvider{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(defaultModel),
		promptTemplate: tmpl,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// Generate implements Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, in Input) (Result, error) {
	prompt, err := p.renderPrompt(in)
	if err != nil {
		return Result{}, fmt.Errorf("render enrichment prompt: %w", err)
	}

	text, err := p.callWithRetry(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	parsed, err := parseEnrichmentResponse(text)
	if err != nil {
		return Result{}, fmt.Errorf("parse enrichment response: %w", err)
	}

	words := make([]string, len(parsed.Keywords))
	for i, kw := range parsed.Keywords {
		words[i] = kw.Word
	}

	return Result{
		Keywords:    parsed.Keywords,
		Concepts:    parsed.Concepts,
		Summary:     parsed.Summary,
		SearchIndex: strings.Join(words, " "),
		Embedding:   pseudoEmbedding(parsed.Keywords, parsed.Concepts),
	}, nil
}

type enrichmentResponse struct {
	Keywords []kbtypes.ItemKeyword `json:"keywords"`
	Concepts []kbtypes.ItemConcept `json:"concepts"`
	Summary  string                `json:"summary"`
}

// parseEnrichmentResponse extracts the JSON object the prompt asks
// for, clamping each field to its size and range bounds. The model is
// instructed to emit nothing but JSON, but a defensive brace scan
// tolerates incidental wrapping text.
func parseEnrichmentResponse(text string) (enrichmentResponse, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return enrichmentResponse{}, fmt.Errorf("no JSON object found in response")
	}

	var resp enrichmentResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return enrichmentResponse{}, err
	}

	if len(resp.Keywords) > maxKeywords {
		resp.Keywords = resp.Keywords[:maxKeywords]
	}
	if len(resp.Concepts) > maxConcepts {
		resp.Concepts = resp.Concepts[:maxConcepts]
	}
	for i := range resp.Keywords {
		resp.Keywords[i].Weight = clampUnit(resp.Keywords[i].Weight)
	}
	for i := range resp.Concepts {
		resp.Concepts[i].Confidence = clampUnit(resp.Concepts[i].Confidence)
	}
	if len(resp.Summary) > maxSummary {
		resp.Summary = resp.Summary[:maxSummary]
	}
	return resp, nil
}

func clampUnit(v float64) float64 {
	if v <= 0 {
		return 0.01
	}
	if v > 1 {
		return 1
	}
	return v
}

// pseudoEmbedding hashes each keyword/concept name into a small set of
// the 128 dimensions and accumulates a weighted sign, producing a
// deterministic vector that clusters similar keyword/concept sets
// near each other without requiring a real embeddings API call.
func pseudoEmbedding(keywords []kbtypes.ItemKeyword, concepts []kbtypes.ItemConcept) []byte {
	vec := make([]float64, kbtypes.EmbeddingDim)
	project := func(term string, weight float64) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()
		for k := 0; k < 4; k++ {
			idx := int((sum >> (k * 16)) % uint64(kbtypes.EmbeddingDim))
			sign := 1.0
			if (sum>>(k*16+8))&1 == 1 {
				sign = -1.0
			}
			vec[idx] += sign * weight
		}
	}
	for _, kw := range keywords {
		project(kw.Word, kw.Weight)
	}
	for _, c := range concepts {
		project(c.Name, c.Confidence)
	}

	maxAbs := 0.0
	for _, v := range vec {
		if abs := math.Abs(v); abs > maxAbs {
			maxAbs = abs
		}
	}
	if maxAbs == 0 {
		return kbtypes.ZeroEmbedding()
	}
	for i := range vec {
		vec[i] /= maxAbs
	}
	return kbtypes.QuantizeEmbedding(vec)
}

// aiMetrics holds lazily-initialized OTel instruments for Anthropic API calls.
var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := obs.Meter(instrumentScope)
	aiMetrics.inputTokens, _ = m.Int64Counter("shirokuma.ai.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("shirokuma.ai.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.duration, _ = m.Float64Histogram("shirokuma.ai.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (p *AnthropicProvider) callWithRetry(ctx context.Context, prompt string) (string, error) {
	tracer := obs.Tracer(instrumentScope)
	ctx, span := tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(
		attribute.String("shirokuma.ai.model", string(p.model)),
		attribute.String("shirokuma.ai.operation", "enrichment"),
	)

	var lastErr error
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		t0 := time.Now()
		message, err := p.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())

		if err == nil {
			modelAttr := attribute.String("shirokuma.ai.model", string(p.model))
			if aiMetrics.inputTokens != nil {
				aiMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr))
				aiMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr))
				aiMetrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr))
			}
			span.SetAttributes(attribute.Int("shirokuma.ai.attempts", attempt+1))

			if len(message.Content) > 0 {
				content := message.Content[0]
				if content.Type == "text" {
					return content.Text, nil
				}
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return "", fmt.Errorf("unexpected response format: no content blocks")
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
	}
	return "", fmt.Errorf("failed after %d attempts: %w", p.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

type promptData struct {
	Title       string
	Description string
	Content     string
}

func (p *AnthropicProvider) renderPrompt(in Input) (string, error) {
	var sb strings.Builder
	data := promptData{Title: in.Title, Description: in.Description, Content: in.Content}
	if err := p.promptTemplate.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

const enrichmentPromptTemplate = `Analyze the following knowledge-base item and extract structured metadata.

**Title:** {{.Title}}

{{if .Description}}**Description:**
{{.Description}}
{{end}}
{{if .Content}}**Content:**
{{.Content}}
{{end}}

Respond with ONLY a JSON object of this exact shape, nothing else:

{
  "keywords": [{"word": "...", "weight": 0.0}],
  "concepts": [{"name": "...", "confidence": 0.0}],
  "summary": "..."
}

Rules:
- Up to 20 keywords, weights in (0, 1], highest for terms central to the title.
- Up to 10 concepts naming higher-level topics, confidences in (0, 1].
- summary must be at most 500 characters.`
