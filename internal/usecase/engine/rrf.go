package engine

import (
	"github.com/matchdex/matchdex/internal/domain/match"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges the semantic and keyword rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// When a record appears in both lists, the semantic entry is kept.
func fuseRRF(semantic, keyword []match.Match, topK int) []match.Match {
	type scored struct {
		m     match.Match
		score float64
	}

	merged := make(map[string]*scored)

	for rank, m := range semantic {
		s := 1.0 / float64(rrfK+rank+1)
		merged[m.ID()] = &scored{m: m, score: s}
	}

	for rank, m := range keyword {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[m.ID()]; ok {
			existing.score += s
		} else {
			merged[m.ID()] = &scored{m: m, score: s}
		}
	}

	fused := make([]match.Match, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, s.m.WithScore(s.score))
	}

	match.Order(fused)

	if len(fused) > topK {
		fused = fused[:topK]
	}

	return fused
}
