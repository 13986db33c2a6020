// Package query defines the aggregator's contract: classified intents,
// requester hints, per-source outcomes and the combined answer.
package query

import (
	"fmt"
	"time"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/match"
)

// Intent is the classified category of a natural-language query.
type Intent string

// Intent categories.
const (
	// IntentMatch needs exactly one facade's match operation.
	IntentMatch Intent = "match_request"
	// IntentCrossMatch needs both facades' match operations.
	IntentCrossMatch Intent = "cross_match_request"
	// IntentAnalytics needs one or both facades' analytics.
	IntentAnalytics Intent = "analytics_request"
	// IntentUnsupported cannot be classified; fails fast, nothing dispatched.
	IntentUnsupported Intent = "unsupported"
)

// Role identifies which side of the market the requester is on. It is a
// routing hint only, never an authorization decision.
type Role string

// Requester roles.
const (
	RoleJobSeeker Role = "job_seeker"
	RoleEmployer  Role = "employer"
	// RoleUnknown lets the classifier decide from the query text alone.
	RoleUnknown Role = ""
)

// ParseRole validates a role hint.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleJobSeeker, RoleEmployer, RoleUnknown:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, s)
	}
}

// RequesterContext carries opaque caller hints into answer(): who asks,
// the subject text they are asking about (their resume or job posting),
// and ranking preferences. Fusion weights, when present, request an
// explicit cross-population score fusion instead of labeled sub-lists.
type RequesterContext struct {
	Role        Role
	SubjectText string
	OwnerID     string
	TopK        int
	MinScore    float64
	// FusionWeights maps population name to weight; nil means no fusion.
	FusionWeights map[domain.Population]float64
}

// Validate checks the hint bundle.
func (rc RequesterContext) Validate() error {
	if _, err := ParseRole(string(rc.Role)); err != nil {
		return err
	}
	if rc.TopK < 0 {
		return fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}
	if rc.MinScore < -1 || rc.MinScore > 1 {
		return fmt.Errorf("%w: min_score must be between -1 and 1", domain.ErrInvalidInput)
	}
	for pop, w := range rc.FusionWeights {
		if _, err := domain.ParsePopulation(string(pop)); err != nil {
			return err
		}
		if w < 0 {
			return fmt.Errorf("%w: fusion weight for %q must not be negative", domain.ErrInvalidInput, pop)
		}
	}
	return nil
}

// SourceStatus is the terminal state of one dispatched facade call.
type SourceStatus string

// Per-source terminal states. Timeouts and failures are recorded on the
// source, not raised, unless every required source ends non-succeeded.
const (
	SourceSucceeded SourceStatus = "succeeded"
	SourceTimedOut  SourceStatus = "timed_out"
	SourceFailed    SourceStatus = "failed"
)

// SourceKind is what was asked of a facade.
type SourceKind string

// Source call kinds.
const (
	SourceMatch     SourceKind = "match"
	SourceAnalytics SourceKind = "analytics"
)

// SourceResult is the outcome of one dispatched facade call.
type SourceResult struct {
	Source          string // e.g. "resumes.match"
	Population      domain.Population
	Kind            SourceKind
	Status          SourceStatus
	Error           string // sanitized message for non-succeeded sources
	Matches         []match.Match
	Summary         *analytics.Summary
	EmbedderVersion string
	Elapsed         time.Duration
}

// Answer is the aggregated response for one query. Results from
// different populations stay in labeled per-source sub-lists; Fused is
// only set when an explicit weighting was requested and every fused
// source reported the same embedder version.
type Answer struct {
	Intent         Intent
	Degraded       bool
	MissingSources []string
	Sources        []SourceResult
	Fused          []match.Match
	Suggestions    []string
}

// Succeeded returns the sources that reached a successful result.
func (a *Answer) Succeeded() []SourceResult {
	var out []SourceResult
	for _, s := range a.Sources {
		if s.Status == SourceSucceeded {
			out = append(out, s)
		}
	}
	return out
}
