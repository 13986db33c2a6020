// Package gemini is an embedding provider backed by the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/metrics"
)

const defaultModel = "gemini-embedding-001"

// embedCaller is the slice of the GenAI SDK the embedder uses. *genai.Models
// satisfies it; tests substitute a fake.
type embedCaller interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder calls the Gemini embedding endpoint via the GenAI SDK.
type Embedder struct {
	models     embedCaller
	model      string
	dimensions int
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg), nil
}

func newEmbedder(models embedCaller, cfg *Config) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Version identifies the vector space: provider, model and requested dimensions.
// Vectors and cache entries from a different version are not comparable.
func (e *Embedder) Version() string {
	if e.dimensions > 0 {
		return fmt.Sprintf("%s/%s-%dd", e.provider, e.model, e.dimensions)
	}
	return fmt.Sprintf("%s/%s", e.provider, e.model)
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.embedContents(ctx, genai.Text(text))
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed embeds multiple texts in one API call; the endpoint returns
// one embedding per content in request order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: t}},
		}
	}

	res, err := e.embedContents(ctx, contents)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(texts) {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding count mismatch: got %d for %d texts: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   res.Embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck probes the endpoint with a minimal embedding request.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.embedContents(ctx, genai.Text("ping")); err != nil {
		return fmt.Errorf("probe embed: %w", err)
	}
	return nil
}

type embedOutcome struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

func (e *Embedder) embedContents(ctx context.Context, contents []*genai.Content) (embedOutcome, error) {
	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg.OutputDimensionality = &dims
	}

	start := time.Now()

	resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "api_error").Inc()
		return embedOutcome{}, parseAPIError(err)
	}
	if len(resp.Embeddings) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "empty_response").Inc()
		return embedOutcome{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(duration.Seconds())

	out := embedOutcome{Embeddings: make([][]float32, 0, len(resp.Embeddings))}
	var tokens int
	for _, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return embedOutcome{}, fmt.Errorf("empty embedding in response: %w", domain.ErrEmbeddingProviderError)
		}
		out.Embeddings = append(out.Embeddings, emb.Values)
		if emb.Statistics != nil {
			tokens += int(emb.Statistics.TokenCount)
		}
	}

	// Статистика токенов приходит только на Vertex; на Gemini API будет 0.
	out.PromptTokens = tokens
	out.TotalTokens = tokens
	if tokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(tokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(tokens))
	}

	return out, nil
}

// parseAPIError extracts status and message from a GenAI SDK error.
// All errors are wrapped with domain.ErrEmbeddingProviderError for correct status mapping.
func parseAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini API error (status %d, %s): %s: %w",
			apiErr.Code, apiErr.Status, apiErr.Message, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("gemini embed: %v: %w", err, domain.ErrEmbeddingProviderError)
}
