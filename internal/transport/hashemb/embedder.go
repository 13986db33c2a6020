// Package hashemb is a local, dependency-free embedding provider based on
// feature hashing. It needs no API key and consumes no tokens, which makes
// it the default for offline runs; identical text always yields an
// identical vector for a fixed dimension.
package hashemb

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/matchdex/matchdex/internal/domain"
)

// DefaultDimensions matches the default vector configuration.
const DefaultDimensions = 384

// Embedder hashes lowercase tokens into a fixed number of buckets with
// log-scaled term frequencies and L2-normalizes the result. Scores are
// crude next to a trained model but fully deterministic and free.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a hashing embedder for vectors of the given dimension.
func NewEmbedder(dimensions int) (*Embedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	return &Embedder{dimensions: dimensions}, nil
}

// Version pins the vector space: hashing scheme revision plus dimension.
func (e *Embedder) Version() string {
	return fmt.Sprintf("hashemb/%d-v1", e.dimensions)
}

// Embed implements domain.Embedder. Token usage is always zero.
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: text has no indexable tokens", domain.ErrInvalidInput)
	}

	// Count term frequencies, remembering first-appearance order so the
	// float accumulation below is reproducible for identical text.
	tf := make(map[string]int, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tf[tok] == 0 {
			terms = append(terms, tok)
		}
		tf[tok]++
	}

	acc := make([]float64, e.dimensions)
	for _, term := range terms {
		h := hashTerm(term)
		bucket := int(h % uint64(e.dimensions))
		weight := 1 + math.Log(float64(tf[term]))
		if h&(1<<63) != 0 {
			weight = -weight
		}
		acc[bucket] += weight
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: text hashed to a zero vector", domain.ErrInvalidInput)
	}

	vec := make([]float32, e.dimensions)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// HealthCheck always succeeds: there is no upstream.
func (e *Embedder) HealthCheck(_ context.Context) error { return nil }

func hashTerm(term string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(term))
	return h.Sum64()
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
