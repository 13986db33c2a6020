package vecindex

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
)

type entry struct {
	rec    record.Record
	vector []float32
}

// Index is the in-memory similarity index for one population: record id
// to embedding vector, scanned in full for top-K cosine ranking. Writes
// exclude each other; reads proceed concurrently and always observe
// whole vectors, never a partially applied upsert.
type Index struct {
	population domain.Population
	dim        int

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty index for vectors of the given dimension.
func New(population domain.Population, dim int) (*Index, error) {
	if _, err := domain.ParsePopulation(string(population)); err != nil {
		return nil, err
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive", domain.ErrInvalidInput)
	}
	return &Index{
		population: population,
		dim:        dim,
		entries:    make(map[string]entry),
	}, nil
}

// Population returns the entity class this index serves.
func (ix *Index) Population() domain.Population { return ix.population }

// Dim returns the vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Upsert inserts or replaces the record and its vector. The stored
// vector is a private copy, so later caller-side mutation cannot tear a
// concurrent read.
func (ix *Index) Upsert(rec record.Record, vector []float32) error {
	if rec.ID() == "" {
		return fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}
	if len(vector) != ix.dim {
		return fmt.Errorf("%w: got %d, index expects %d", domain.ErrVectorDimMismatch, len(vector), ix.dim)
	}
	if isZeroVector(vector) {
		return fmt.Errorf("%w: zero vector has no direction, similarity undefined", domain.ErrInvalidInput)
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[rec.ID()] = entry{rec: rec, vector: stored}
	return nil
}

// Remove deletes the entry for id; absent ids are a no-op.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, id)
}

// Get returns the stored record for id.
func (ix *Index) Get(id string) (record.Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	return e.rec, ok
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Snapshot returns a copy of all stored records, for analytics and
// listing. Records are immutable values, safe to hand out.
func (ix *Index) Snapshot() []record.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]record.Record, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e.rec)
	}
	return out
}

// TopK scans every entry passing the filter, scores it by cosine
// similarity to queryVec, and returns up to k results ordered by score
// descending with ties broken by ascending id. An empty index returns
// an empty result, not an error.
func (ix *Index) TopK(queryVec []float32, k int, filters filter.Expression) ([]match.Scored, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}
	if len(queryVec) != ix.dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", domain.ErrVectorDimMismatch, len(queryVec), ix.dim)
	}
	if isZeroVector(queryVec) {
		return nil, fmt.Errorf("%w: zero query vector, similarity undefined", domain.ErrInvalidInput)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// Bounded selection: a size-k min-heap keeps the scan O(n log k)
	// instead of sorting the whole population.
	h := &bottomKHeap{}
	for _, e := range ix.entries {
		if !filters.IsEmpty() && !filters.Matches(e.rec.Skills(), e.rec.Numerics(), e.rec.Tags()) {
			continue
		}
		s := match.Scored{Record: e.rec, Score: cosine(queryVec, e.vector)}
		if h.Len() < k {
			heap.Push(h, s)
			continue
		}
		if worse((*h)[0], s) {
			(*h)[0] = s
			heap.Fix(h, 0)
		}
	}

	out := make([]match.Scored, h.Len())
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Record.ID() < out[j].Record.ID()
	})
	return out, nil
}

// cosine is dot(a,b) / (|a|*|b|), accumulated in float64 so scores are
// stable regardless of summation noise in long vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// worse reports whether a ranks below b under the canonical ordering
// (score descending, id ascending on ties).
func worse(a, b match.Scored) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Record.ID() > b.Record.ID()
}

// bottomKHeap is a min-heap by the canonical ordering: the root is the
// worst kept result, the first candidate to displace.
type bottomKHeap []match.Scored

func (h bottomKHeap) Len() int { return len(h) }

func (h bottomKHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Record.ID() > h[j].Record.ID()
}

func (h bottomKHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *bottomKHeap) Push(x any) { *h = append(*h, x.(match.Scored)) }

func (h *bottomKHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
