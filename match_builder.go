package matchdex

import (
	"context"
	"errors"
	"fmt"
)

// Hit is a typed match result.
type Hit[T any] struct {
	Item  T
	Score float64
	Rank  int
}

// MatchBuilder is a fluent builder for typed match queries.
type MatchBuilder[T any] struct {
	tr *TypedRecords[T]

	query        string
	mode         MatchMode
	filters      []FilterCondition
	minScore     float64
	excludeOwner string
	limit        int
}

// Mode sets the ranking strategy (semantic, keyword, hybrid).
func (b *MatchBuilder[T]) Mode(m MatchMode) *MatchBuilder[T] {
	b.mode = m
	return b
}

// Where adds a tag filter condition (exact match). On the skills field
// it tests set membership.
func (b *MatchBuilder[T]) Where(key, value string) *MatchBuilder[T] {
	b.filters = append(b.filters, FilterCondition{Key: key, Match: value})
	return b
}

// WhereRange adds a numeric range filter condition.
func (b *MatchBuilder[T]) WhereRange(key string, r RangeFilter) *MatchBuilder[T] {
	b.filters = append(b.filters, FilterCondition{Key: key, Range: &r})
	return b
}

// MinScore drops hits scoring below s.
func (b *MatchBuilder[T]) MinScore(s float64) *MatchBuilder[T] {
	b.minScore = s
	return b
}

// ExcludeOwner drops hits owned by the given id, so requesters never
// match their own records.
func (b *MatchBuilder[T]) ExcludeOwner(id string) *MatchBuilder[T] {
	b.excludeOwner = id
	return b
}

// Limit sets the maximum number of results.
func (b *MatchBuilder[T]) Limit(n int) *MatchBuilder[T] {
	b.limit = n
	return b
}

// Do executes the match and returns typed results.
func (b *MatchBuilder[T]) Do(ctx context.Context) ([]Hit[T], error) {
	opts := &MatchOptions{
		Mode:         b.mode,
		K:            b.limit,
		MinScore:     b.minScore,
		ExcludeOwner: b.excludeOwner,
	}
	if len(b.filters) > 0 {
		opts.Filters = FilterExpression{Must: b.filters}
	}

	matches, err := b.tr.records.Match(ctx, b.query, opts)
	if err != nil {
		return nil, err
	}
	return b.toHits(ctx, matches)
}

// toHits hydrates matches into typed items. A match only carries a
// snippet, so each hit re-reads the full record.
func (b *MatchBuilder[T]) toHits(ctx context.Context, matches []Match) ([]Hit[T], error) {
	hits := make([]Hit[T], 0, len(matches))
	for _, m := range matches {
		rec, err := b.tr.records.Get(ctx, m.ID)
		if err != nil {
			// Удалён между match и hydrate.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("hydrate %s: %w", m.ID, err)
		}
		item, ok := b.tr.meta.fromRecord(rec).(T)
		if !ok {
			continue
		}
		hits = append(hits, Hit[T]{Item: item, Score: m.Score, Rank: m.Rank})
	}
	return hits, nil
}
