// Package facade exposes one population as a service: submission,
// matching, retraction and analytics. A deployment runs two facades,
// resumes and jobs, over structurally identical engines; their duality
// is in what a match means, not in the code path.
package facade

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/batch"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
	"github.com/matchdex/matchdex/internal/domain/search/mode"
	"github.com/matchdex/matchdex/internal/domain/search/request"
)

// MaxBatchSize is the maximum number of items per batch submission.
const MaxBatchSize = 100

// matchEngine is the consumer interface for the population engine (ISP).
type matchEngine interface {
	Match(ctx context.Context, req *request.Request) ([]match.Match, error)
	Ingest(ctx context.Context, rec record.Record) error
	IngestBatch(ctx context.Context, recs []record.Record) []batch.Result
	Retract(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (record.Record, error)
	Snapshot(ctx context.Context) []record.Record
	Population() domain.Population
	Size() int
	EmbedderVersion() string
}

// SubmitInput is one record submission. ID is optional: when empty, a
// UUID is assigned.
type SubmitInput struct {
	ID       string
	RawText  string
	Skills   []string
	Numerics map[string]float64
	Tags     map[string]string
}

// MatchOptions tune a match call. Zero values fall back to the request
// defaults: semantic mode, k=10, no score cutoff.
type MatchOptions struct {
	Mode         mode.Mode
	Filters      filter.Expression
	K            int
	MinScore     float64
	ExcludeOwner string
}

// Service is one population's public surface.
type Service struct {
	engine matchEngine
	logger *zap.Logger
}

// New creates a facade over a population engine.
func New(eng matchEngine, logger *zap.Logger) *Service {
	return &Service{engine: eng, logger: logger}
}

// Population returns the entity class this facade serves.
func (s *Service) Population() domain.Population { return s.engine.Population() }

// EmbedderVersion identifies the vector space of this facade's engine.
func (s *Service) EmbedderVersion() string { return s.engine.EmbedderVersion() }

// Submit validates, stores and indexes one record.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (record.Record, error) {
	rec, err := s.buildRecord(in)
	if err != nil {
		return record.Record{}, err
	}

	if err := s.engine.Ingest(ctx, rec); err != nil {
		return record.Record{}, fmt.Errorf("ingest: %w", err)
	}

	s.logger.Debug("Record submitted",
		zap.String("population", string(s.Population())),
		zap.String("id", rec.ID()),
		zap.Int("skills", len(rec.Skills())),
	)

	return rec, nil
}

// SubmitBatch stores many records with per-item outcomes: items that
// fail validation never reach the embedding provider, and one bad item
// does not fail the rest.
func (s *Service) SubmitBatch(ctx context.Context, ins []SubmitInput) []batch.Result {
	if len(ins) == 0 {
		return nil
	}

	if len(ins) > MaxBatchSize {
		err := fmt.Errorf("batch size exceeds %d: %w", MaxBatchSize, domain.ErrInvalidInput)
		results := make([]batch.Result, len(ins))
		for i, in := range ins {
			results[i] = batch.NewError(itemID(in, i), err)
		}
		return results
	}

	results := make([]batch.Result, len(ins))
	valid := make([]record.Record, 0, len(ins))
	validIdx := make([]int, 0, len(ins))

	for i, in := range ins {
		rec, err := s.buildRecord(in)
		if err != nil {
			results[i] = batch.NewError(itemID(in, i), err)
			continue
		}
		valid = append(valid, rec)
		validIdx = append(validIdx, i)
	}

	for j, res := range s.engine.IngestBatch(ctx, valid) {
		results[validIdx[j]] = res
	}

	ok, failed := batch.Tally(results)
	s.logger.Info("Batch submitted",
		zap.String("population", string(s.Population())),
		zap.Int("ok", ok),
		zap.Int("failed", failed),
	)

	return results
}

// Match ranks this population's records against the query text. For the
// resumes facade the query is a job description and matches are
// candidates; for the jobs facade the query is a resume and matches are
// openings.
func (s *Service) Match(ctx context.Context, queryText string, opts MatchOptions) ([]match.Match, error) {
	req, err := request.New(queryText, opts.Mode, opts.Filters, opts.K, opts.MinScore, opts.ExcludeOwner)
	if err != nil {
		return nil, err
	}

	matches, err := s.engine.Match(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	return matches, nil
}

// Remove retracts a record from matching. Idempotent.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.engine.Retract(ctx, id); err != nil {
		return fmt.Errorf("retract: %w", err)
	}
	return nil
}

// Get returns a stored record.
func (s *Service) Get(ctx context.Context, id string) (record.Record, error) {
	return s.engine.Get(ctx, id)
}

// List returns stored records, optionally narrowed to one owner,
// ordered by id.
func (s *Service) List(ctx context.Context, owner string) ([]record.Record, error) {
	records := s.engine.Snapshot(ctx)

	if owner != "" {
		filtered := records[:0]
		for _, rec := range records {
			if strings.EqualFold(rec.Owner(), owner) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	sortRecordsByID(records)
	return records, nil
}

// Size returns the number of stored records.
func (s *Service) Size(_ context.Context) int { return s.engine.Size() }

// Analytics summarizes the population: size, skill frequencies, numeric
// distributions, seniority buckets and top tag values. One pass over a
// records snapshot, no re-embedding.
func (s *Service) Analytics(ctx context.Context) (analytics.Summary, error) {
	return summarize(s.Population(), s.engine.Snapshot(ctx)), nil
}

// Live reports facade liveness for health checks.
func (s *Service) Live(_ context.Context) error {
	// A size read exercises the index lock end to end.
	_ = s.engine.Size()
	return nil
}

func (s *Service) buildRecord(in SubmitInput) (record.Record, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}
	return record.New(id, s.Population(), in.RawText, in.Skills, in.Numerics, in.Tags)
}

// itemID names a failed batch item in the outcome list even when the
// submission had no id of its own.
func itemID(in SubmitInput, i int) string {
	if id := strings.TrimSpace(in.ID); id != "" {
		return id
	}
	return fmt.Sprintf("item-%d", i)
}
