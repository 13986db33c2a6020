// Package request defines validated match query parameters.
package request

import (
	"fmt"
	"strings"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
	"github.com/matchdex/matchdex/internal/domain/search/mode"
)

// Match parameter limits.
const (
	// MaxQueryLength is the maximum allowed query text length.
	MaxQueryLength = 8192
	DefaultK       = 10
	MaxK           = 500
)

// Request is a validated match query: free text ranked against one
// population. The population itself is fixed by the engine instance
// handling the request.
type Request struct {
	query        string
	matchMode    mode.Mode
	filters      filter.Expression
	k            int
	minScore     float64
	excludeOwner string
}

// New validates and normalizes match parameters.
// Defaults: mode=semantic, k=10; k=0 means "use default", negative k is
// invalid. minScore spans the cosine domain [-1, 1].
func New(
	query string,
	m mode.Mode,
	filters filter.Expression,
	k int,
	minScore float64,
	excludeOwner string,
) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidInput, MaxQueryLength)
	}
	if m == "" {
		m = mode.Semantic
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid match mode %q", domain.ErrInvalidInput, m)
	}
	if k < 0 {
		return Request{}, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}
	if k == 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if minScore < -1 || minScore > 1 {
		return Request{}, fmt.Errorf("%w: min_score must be between -1 and 1", domain.ErrInvalidInput)
	}

	return Request{
		query:        query,
		matchMode:    m,
		filters:      filters,
		k:            k,
		minScore:     minScore,
		excludeOwner: excludeOwner,
	}, nil
}

// Query returns the match query text.
func (r *Request) Query() string { return r.query }

// Mode returns the ranking strategy.
func (r *Request) Mode() mode.Mode { return r.matchMode }

// Filters returns the structured-field pre-filter.
func (r *Request) Filters() filter.Expression { return r.filters }

// K returns the number of matches to return.
func (r *Request) K() int { return r.k }

// MinScore returns the minimum similarity threshold.
func (r *Request) MinScore() float64 { return r.minScore }

// ExcludeOwner returns the owner tag whose records are excluded from
// results, so a caller never matches their own submissions.
func (r *Request) ExcludeOwner() string { return r.excludeOwner }
