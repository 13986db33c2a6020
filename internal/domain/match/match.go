// Package match defines ranked match results and their ordering rules.
package match

import (
	"sort"

	"github.com/matchdex/matchdex/internal/domain/record"
)

// Scored pairs a record with its similarity to a query vector, before
// ranking and snippet construction.
type Scored struct {
	Record record.Record
	Score  float64
}

// Hit is one keyword ranking result: an id/score pair from a source
// that does not carry full records.
type Hit struct {
	ID    string
	Score float64
}

// Match is a single ranked hit: one record scored against a query.
type Match struct {
	id      string
	score   float64
	rank    int
	snippet string
	skills  []string
	tags    map[string]string
}

// New creates a match hit. Rank is assigned later by Order.
func New(id string, score float64, snippet string, skills []string, tags map[string]string) Match {
	return Match{id: id, score: score, snippet: snippet, skills: skills, tags: tags}
}

// ID returns the matched record identifier.
func (m *Match) ID() string { return m.id }

// Score returns the similarity score in [-1, 1] for cosine ranking.
func (m *Match) Score() float64 { return m.score }

// Rank returns the 1-based position after ordering; 0 before Order ran.
func (m *Match) Rank() int { return m.rank }

// Snippet returns a display excerpt of the matched record.
func (m *Match) Snippet() string { return m.snippet }

// Skills returns the matched record's skill set.
func (m *Match) Skills() []string { return m.skills }

// Tags returns the matched record's tag fields.
func (m *Match) Tags() map[string]string { return m.tags }

// WithScore returns a copy with the score replaced; used by fusion.
func (m Match) WithScore(score float64) Match {
	m.score = score
	m.rank = 0
	return m
}

// Less is the canonical ordering: score descending, ties broken by
// ascending ID so rankings are deterministic.
func Less(a, b Match) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}

// Order sorts matches by the canonical ordering and assigns 1-based ranks.
func Order(matches []Match) {
	sort.Slice(matches, func(i, j int) bool { return Less(matches[i], matches[j]) })
	for i := range matches {
		matches[i].rank = i + 1
	}
}
