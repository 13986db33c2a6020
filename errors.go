package matchdex

import "github.com/matchdex/matchdex/internal/domain"

// Sentinel errors surfaced by the embedded client, for use with errors.Is.
var (
	// ErrInvalidInput reports malformed input: empty text, bad id, unknown field.
	ErrInvalidInput = domain.ErrInvalidInput
	// ErrNotFound reports a missing record.
	ErrNotFound = domain.ErrRecordNotFound
	// ErrUnsupportedQuery reports a chat query whose intent cannot be classified.
	ErrUnsupportedQuery = domain.ErrUnsupportedQuery
	// ErrAggregationFailed reports that every source a chat answer needed
	// failed or timed out.
	ErrAggregationFailed = domain.ErrAggregationFailure
	// ErrEmbeddingQuotaExceeded reports an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	// ErrKeywordSearchNotSupported reports a keyword or hybrid match
	// against a facade without a keyword index.
	ErrKeywordSearchNotSupported = domain.ErrKeywordSearchNotSupported
)
