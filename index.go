package matchdex

import (
	"context"
	"fmt"
)

// TypedRecords is a generic, schema-first view over one population.
// Schema is inferred from T's struct tags at construction time:
//
//	type Candidate struct {
//	    ID     string   `matchdex:"id,id"`
//	    Resume string   `matchdex:"text,text"`
//	    Skills []string `matchdex:"skills,skills"`
//	    City   string   `matchdex:"location,tag"`
//	    Years  float64  `matchdex:"experience_years,numeric"`
//	}
type TypedRecords[T any] struct {
	records *Records
	meta    *schemaMeta
}

// NewTyped creates a typed view over a population facade. T must be a
// struct with matchdex tags. Schema is parsed once and cached.
func NewTyped[T any](records *Records) (*TypedRecords[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, err
	}
	return &TypedRecords[T]{records: records, meta: meta}, nil
}

// Submit validates, embeds and indexes one item, replacing any record
// with the same ID. Returns the stored item with skills normalized.
func (tr *TypedRecords[T]) Submit(ctx context.Context, item T) (T, error) {
	stored, err := tr.records.Submit(ctx, tr.meta.toRecord(item))
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := tr.meta.fromRecord(stored).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("submit: type assertion failed")
	}
	return out, nil
}

// SubmitBatch ingests items in bulk; one bad item never fails the rest.
func (tr *TypedRecords[T]) SubmitBatch(ctx context.Context, items []T) []BatchResult {
	recs := make([]Record, len(items))
	for i, item := range items {
		recs[i] = tr.meta.toRecord(item)
	}
	return tr.records.SubmitBatch(ctx, recs)
}

// Get retrieves a typed item by ID.
func (tr *TypedRecords[T]) Get(ctx context.Context, id string) (T, error) {
	rec, err := tr.records.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	item, ok := tr.meta.fromRecord(rec).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("get: type assertion failed")
	}
	return item, nil
}

// Remove retracts an item from matching. Idempotent.
func (tr *TypedRecords[T]) Remove(ctx context.Context, id string) error {
	return tr.records.Remove(ctx, id)
}

// Count returns the number of stored records.
func (tr *TypedRecords[T]) Count(ctx context.Context) int {
	return tr.records.Count(ctx)
}

// Match returns a fluent match builder for this view.
func (tr *TypedRecords[T]) Match(query string) *MatchBuilder[T] {
	return &MatchBuilder[T]{tr: tr, query: query}
}
