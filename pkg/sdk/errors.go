package matchdex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for errors.Is checks. Every *APIError unwraps to one
// of these, so callers can branch without inspecting status codes.
var (
	ErrInvalidInput              = errors.New("matchdex: invalid input")
	ErrUnauthorized              = errors.New("matchdex: unauthorized")
	ErrNotFound                  = errors.New("matchdex: not found")
	ErrUnsupportedQuery          = errors.New("matchdex: unsupported query")
	ErrRateLimited               = errors.New("matchdex: rate limited")
	ErrEmbeddingQuotaExceeded    = errors.New("matchdex: embedding quota exceeded")
	ErrEmbeddingUnavailable      = errors.New("matchdex: embedding provider unavailable")
	ErrKeywordSearchNotSupported = errors.New("matchdex: keyword search not supported")
	ErrAggregationFailed         = errors.New("matchdex: aggregation failed")
)

// APIError carries the structured error payload returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	// Sources names the aggregator sources that failed, when the server
	// reports a partial or total aggregation failure.
	Sources []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("matchdex: %s (status %d, code %s)", e.Message, e.Status, e.Code)
}

// Unwrap maps the server error to a sentinel. The machine code wins over
// the HTTP status: codes are stable across transports, statuses are not.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed", "vector_dim_mismatch":
		return ErrInvalidInput
	case "unauthorized":
		return ErrUnauthorized
	case "not_found", "record_not_found":
		return ErrNotFound
	case "unsupported_query":
		return ErrUnsupportedQuery
	case "rate_limited":
		return ErrRateLimited
	case "embedding_quota_exceeded":
		return ErrEmbeddingQuotaExceeded
	case "embedding_provider_error", "embedding_failure":
		return ErrEmbeddingUnavailable
	case "keyword_search_not_supported":
		return ErrKeywordSearchNotSupported
	case "aggregation_failure":
		return ErrAggregationFailed
	}

	switch e.Status {
	case http.StatusBadRequest:
		return ErrInvalidInput
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		return ErrUnsupportedQuery
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadGateway:
		return ErrAggregationFailed
	case http.StatusServiceUnavailable:
		return ErrEmbeddingUnavailable
	}
	return nil
}

type errorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Sources []string `json:"sources,omitempty"`
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Code:    "internal_error",
		Message: http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Code != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		apiErr.Sources = payload.Sources
	}
	return apiErr
}
