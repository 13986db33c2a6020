package engine

import (
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
)

// VectorIndex is the consumer interface for the similarity index (ISP).
type VectorIndex interface {
	Upsert(rec record.Record, vector []float32) error
	Remove(id string)
	Get(id string) (record.Record, bool)
	Len() int
	Snapshot() []record.Record
	TopK(queryVec []float32, k int, filters filter.Expression) ([]match.Scored, error)
}

// TextIndex is the consumer interface for the keyword index (ISP).
type TextIndex interface {
	Upsert(rec record.Record) error
	Remove(id string) error
	Search(queryText string, k int) ([]match.Hit, error)
}
