package matchdex

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestAPIError_SentinelMapping(t *testing.T) {
	tests := []struct {
		code   string
		status int
		want   error
	}{
		{"bad_request", 400, ErrInvalidInput},
		{"validation_failed", 400, ErrInvalidInput},
		{"vector_dim_mismatch", 400, ErrInvalidInput},
		{"unauthorized", 401, ErrUnauthorized},
		{"not_found", 404, ErrNotFound},
		{"record_not_found", 404, ErrNotFound},
		{"unsupported_query", 422, ErrUnsupportedQuery},
		{"rate_limited", 429, ErrRateLimited},
		{"embedding_quota_exceeded", 429, ErrEmbeddingQuotaExceeded},
		{"embedding_provider_error", 503, ErrEmbeddingUnavailable},
		{"embedding_failure", 503, ErrEmbeddingUnavailable},
		{"keyword_search_not_supported", 501, ErrKeywordSearchNotSupported},
		{"aggregation_failure", 502, ErrAggregationFailed},

		// Неизвестный код: решает HTTP статус.
		{"mystery", 400, ErrInvalidInput},
		{"mystery", 401, ErrUnauthorized},
		{"mystery", 404, ErrNotFound},
		{"mystery", 422, ErrUnsupportedQuery},
		{"mystery", 429, ErrRateLimited},
		{"mystery", 502, ErrAggregationFailed},
		{"mystery", 503, ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		err := &APIError{Status: tt.status, Code: tt.code, Message: "m"}
		if !errors.Is(err, tt.want) {
			t.Errorf("code=%s status=%d: not mapped to %v", tt.code, tt.status, tt.want)
		}
	}
}

func TestAPIError_UnknownStaysOpaque(t *testing.T) {
	err := &APIError{Status: 500, Code: "internal_error", Message: "boom"}
	for _, sentinel := range []error{
		ErrInvalidInput, ErrUnauthorized, ErrNotFound, ErrUnsupportedQuery,
		ErrRateLimited, ErrEmbeddingQuotaExceeded, ErrEmbeddingUnavailable,
		ErrKeywordSearchNotSupported, ErrAggregationFailed,
	} {
		if errors.Is(err, sentinel) {
			t.Errorf("500 internal_error should not map to %v", sentinel)
		}
	}
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{Status: 404, Code: "record_not_found", Message: "record not found"}
	want := "matchdex: record not found (status 404, code record_not_found)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDecodeAPIError(t *testing.T) {
	resp := &http.Response{
		StatusCode: 429,
		Body:       io.NopCloser(strings.NewReader(`{"code":"rate_limited","message":"slow down"}`)),
	}
	err := decodeAPIError(resp)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "rate_limited" || apiErr.Message != "slow down" {
		t.Errorf("decoded = %+v", apiErr)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("expected ErrRateLimited")
	}
}

func TestDecodeAPIError_Sources(t *testing.T) {
	resp := &http.Response{
		StatusCode: 502,
		Body: io.NopCloser(strings.NewReader(
			`{"code":"aggregation_failure","message":"all sources failed","sources":["resumes.match","jobs.match"]}`)),
	}
	err := decodeAPIError(resp)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if len(apiErr.Sources) != 2 {
		t.Errorf("sources = %v, want 2 entries", apiErr.Sources)
	}
	if !errors.Is(err, ErrAggregationFailed) {
		t.Error("expected ErrAggregationFailed")
	}
}

func TestDecodeAPIError_GarbageBody(t *testing.T) {
	// Прокси может вернуть не-JSON. Не падаем, подставляем статус.
	resp := &http.Response{
		StatusCode: 500,
		Body:       io.NopCloser(strings.NewReader("<html>bad gateway</html>")),
	}
	err := decodeAPIError(resp)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != "internal_error" {
		t.Errorf("code = %q, want internal_error", apiErr.Code)
	}
	if apiErr.Message != "Internal Server Error" {
		t.Errorf("message = %q", apiErr.Message)
	}
}
