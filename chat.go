package matchdex

import (
	"context"
	"time"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/query"
)

// Role identifies which side of the market a chat requester is on. It
// is a routing hint only, never an authorization decision.
type Role string

// Requester roles.
const (
	RoleJobSeeker Role = "job_seeker"
	RoleEmployer  Role = "employer"
)

// RequesterContext carries caller hints into Chat: who asks, the
// subject text they are asking about (their resume or job posting), and
// ranking preferences.
type RequesterContext struct {
	Role        Role
	SubjectText string
	OwnerID     string
	TopK        int
	MinScore    float64
	// FusionWeights maps population name ("resumes", "jobs") to weight.
	// When set, cross-population results are fused into one ranked list
	// instead of labeled per-source sub-lists.
	FusionWeights map[string]float64
}

// SourceStatus is the terminal state of one dispatched source call.
type SourceStatus string

// Per-source terminal states.
const (
	SourceSucceeded SourceStatus = "succeeded"
	SourceTimedOut  SourceStatus = "timed_out"
	SourceFailed    SourceStatus = "failed"
)

// ChatSource is the outcome of one dispatched facade call.
type ChatSource struct {
	Source          string // e.g. "resumes.match"
	Population      string
	Kind            string // "match" or "analytics"
	Status          SourceStatus
	Error           string
	Matches         []Match
	Summary         *Insights
	EmbedderVersion string
	Elapsed         time.Duration
}

// Answer is the aggregated response for one natural-language query.
// A degraded answer names the sources that timed out or failed; results
// from different populations stay in labeled per-source sub-lists
// unless fusion weights were given.
type Answer struct {
	Intent         string
	Degraded       bool
	MissingSources []string
	Sources        []ChatSource
	Fused          []Match
	Suggestions    []string
}

// Chat answers a natural-language query by classifying its intent and
// fanning out to the population facades concurrently. One slow or
// broken facade degrades the answer instead of failing it; the call
// errors only when the intent is unsupported or every required source
// ended non-succeeded.
func (c *Client) Chat(ctx context.Context, queryText string, rc *RequesterContext) (*Answer, error) {
	var qrc query.RequesterContext
	if rc != nil {
		qrc = query.RequesterContext{
			Role:        query.Role(rc.Role),
			SubjectText: rc.SubjectText,
			OwnerID:     rc.OwnerID,
			TopK:        rc.TopK,
			MinScore:    rc.MinScore,
		}
		if rc.FusionWeights != nil {
			qrc.FusionWeights = make(map[domain.Population]float64, len(rc.FusionWeights))
			for pop, w := range rc.FusionWeights {
				qrc.FusionWeights[domain.Population(pop)] = w
			}
		}
	}

	ans, err := c.agg.Answer(ctx, queryText, qrc)
	if err != nil {
		return nil, err
	}
	return fromAnswer(ans), nil
}
