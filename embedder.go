package matchdex

import (
	"context"
	"fmt"

	"github.com/matchdex/matchdex/internal/domain"
)

// EmbeddingResult is the outcome of one embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder produces embedding vectors for raw text. Implementations must
// be safe for concurrent use: both populations share a single instance.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	// Version identifies the model and vector space. Records embedded
	// under different versions must never be ranked against each other,
	// so changing the version means re-submitting every record.
	Version() string
}

// embedderAdapter wraps a public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) Version() string { return a.inner.Version() }
