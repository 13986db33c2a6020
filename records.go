package matchdex

import (
	"context"
	"fmt"

	facadeuc "github.com/matchdex/matchdex/internal/usecase/facade"
)

// MaxBatchSize is the largest accepted batch submit.
const MaxBatchSize = facadeuc.MaxBatchSize

// Records is one population facade: submit, match, analytics and
// lookups over resumes or jobs. Handles are cheap; obtain them per call
// from Client.Resumes or Client.Jobs.
type Records struct {
	svc *facadeuc.Service
}

// Population returns "resumes" or "jobs".
func (r *Records) Population() string {
	return string(r.svc.Population())
}

// EmbedderVersion identifies the vector space of the indexed records.
func (r *Records) EmbedderVersion() string {
	return r.svc.EmbedderVersion()
}

// Submit validates, embeds and indexes one record, replacing any record
// with the same ID. An empty ID gets a generated UUID. Returns the
// stored record with skills normalized.
func (r *Records) Submit(ctx context.Context, rec Record) (Record, error) {
	stored, err := r.svc.Submit(ctx, toSubmitInput(rec))
	if err != nil {
		return Record{}, err
	}
	return fromInternalRecord(stored), nil
}

// SubmitBatch ingests up to MaxBatchSize records. One bad item never
// fails the rest; per-item outcomes come back in submission order.
func (r *Records) SubmitBatch(ctx context.Context, recs []Record) []BatchResult {
	ins := make([]facadeuc.SubmitInput, len(recs))
	for i, rec := range recs {
		ins[i] = toSubmitInput(rec)
	}
	return fromBatchResults(r.svc.SubmitBatch(ctx, ins))
}

// Match ranks indexed records against the query text. Read-only. A nil
// opts means semantic mode with defaults.
func (r *Records) Match(ctx context.Context, queryText string, opts *MatchOptions) ([]Match, error) {
	if opts == nil {
		opts = &MatchOptions{}
	}
	mo, err := toMatchOptions(*opts)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	matches, err := r.svc.Match(ctx, queryText, mo)
	if err != nil {
		return nil, err
	}
	return fromMatches(matches), nil
}

// Get returns a stored record by ID.
func (r *Records) Get(ctx context.Context, id string) (Record, error) {
	rec, err := r.svc.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return fromInternalRecord(rec), nil
}

// List returns stored records ordered by ID, optionally narrowed to one
// owner.
func (r *Records) List(ctx context.Context, owner string) ([]Record, error) {
	recs, err := r.svc.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(recs))
	for i := range recs {
		out[i] = fromInternalRecord(recs[i])
	}
	return out, nil
}

// Remove retracts a record from matching. Idempotent.
func (r *Records) Remove(ctx context.Context, id string) error {
	return r.svc.Remove(ctx, id)
}

// Count returns the number of stored records.
func (r *Records) Count(ctx context.Context) int {
	return r.svc.Size(ctx)
}

// Insights summarizes the population: skill frequencies, numeric
// distributions, seniority buckets and top tag values.
func (r *Records) Insights(ctx context.Context) (Insights, error) {
	summary, err := r.svc.Analytics(ctx)
	if err != nil {
		return Insights{}, err
	}
	return fromSummary(&summary), nil
}
