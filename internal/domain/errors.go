package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput signals malformed caller input: empty text, invalid k, zero vector.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRecordNotFound signals a missing entity record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingFailure signals that the embedder could not process the text.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnsupportedQuery signals that the aggregator cannot classify the query intent.
	ErrUnsupportedQuery = errors.New("unsupported query")
	// ErrAggregationFailure signals that every required source failed or timed out.
	ErrAggregationFailure = errors.New("aggregation failure")
	// ErrKeywordSearchNotSupported signals that keyword indexing is disabled.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported")
)

// AggregationError wraps ErrAggregationFailure with the names of the failed sources.
type AggregationError struct {
	Sources []string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s: sources [%s]", ErrAggregationFailure.Error(), strings.Join(e.Sources, ", "))
}

func (e *AggregationError) Unwrap() error { return ErrAggregationFailure }

// NewAggregationFailure creates an aggregation error naming the failed sources.
func NewAggregationFailure(sources []string) error {
	return &AggregationError{Sources: sources}
}
