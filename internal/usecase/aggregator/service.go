// Package aggregator answers natural-language queries by fanning out to
// the population facades: classify the intent, dispatch the planned
// facade calls concurrently, collect within a bounded wait and merge
// whatever survived. One slow or broken facade degrades the answer
// instead of failing it.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/query"
	"github.com/matchdex/matchdex/internal/domain/search/request"
	"github.com/matchdex/matchdex/internal/usecase/facade"
)

// DefaultSourceTimeout bounds one facade call when no override is configured.
const DefaultSourceTimeout = 3 * time.Second

// Source is the consumer interface for one population facade (ISP).
type Source interface {
	Population() domain.Population
	EmbedderVersion() string
	Match(ctx context.Context, queryText string, opts facade.MatchOptions) ([]match.Match, error)
	Analytics(ctx context.Context) (analytics.Summary, error)
}

// Service coordinates the population facades behind one answer entry
// point. Dispatched calls run under independent per-source deadlines
// and never block each other.
type Service struct {
	sources map[domain.Population]Source
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an aggregator over the two population facades.
func New(resumes, jobs Source, sourceTimeout time.Duration, logger *zap.Logger) *Service {
	if sourceTimeout <= 0 {
		sourceTimeout = DefaultSourceTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sources: map[domain.Population]Source{
			domain.PopulationResumes: resumes,
			domain.PopulationJobs:    jobs,
		},
		timeout: sourceTimeout,
		logger:  logger,
	}
}

// Answer classifies the query, dispatches the planned facade calls and
// merges their results. The requester context is a routing hint bundle,
// never an authorization input. An unsupported intent fails fast with
// nothing dispatched; per-source timeouts and failures are recorded on
// the answer unless every source ended that way.
func (s *Service) Answer(ctx context.Context, queryText string, rc query.RequesterContext) (*query.Answer, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	p := classify(queryText, rc)
	if p.intent == query.IntentUnsupported {
		return nil, fmt.Errorf("%w: no supported intent found", domain.ErrUnsupportedQuery)
	}

	results := s.dispatch(ctx, queryText, rc, p.calls)
	return s.respond(p, rc, results)
}

// dispatch runs one goroutine per planned call. Each goroutine owns its
// result slot, so collection is just the WaitGroup.
func (s *Service) dispatch(ctx context.Context, queryText string, rc query.RequesterContext, calls []sourceCall) []query.SourceResult {
	results := make([]query.SourceResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call sourceCall) {
			defer wg.Done()
			results[i] = s.callSource(ctx, queryText, rc, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

// callSource executes one facade call under its own deadline and folds
// the outcome into a terminal per-source state.
func (s *Service) callSource(ctx context.Context, queryText string, rc query.RequesterContext, call sourceCall) query.SourceResult {
	res := query.SourceResult{
		Source:     sourceName(call),
		Population: call.population,
		Kind:       call.kind,
	}

	src, ok := s.sources[call.population]
	if !ok || src == nil {
		res.Status = query.SourceFailed
		res.Error = "source not configured"
		return res
	}
	res.EmbedderVersion = src.EmbedderVersion()

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch call.kind {
	case query.SourceMatch:
		res.Matches, err = src.Match(cctx, subjectText(queryText, rc), facade.MatchOptions{
			K:            rc.TopK,
			MinScore:     rc.MinScore,
			ExcludeOwner: rc.OwnerID,
		})
	case query.SourceAnalytics:
		var summary analytics.Summary
		if summary, err = src.Analytics(cctx); err == nil {
			res.Summary = &summary
		}
	}
	res.Elapsed = time.Since(start)

	switch {
	case err == nil:
		res.Status = query.SourceSucceeded
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.Status = query.SourceTimedOut
		res.Error = "timed out"
		s.logger.Warn("Source timed out",
			zap.String("source", res.Source),
			zap.Duration("elapsed", res.Elapsed),
		)
	default:
		res.Status = query.SourceFailed
		res.Error = sanitizeSourceError(err)
		s.logger.Warn("Source failed",
			zap.String("source", res.Source),
			zap.Error(err),
		)
	}

	return res
}

// respond assembles the answer. At least one surviving source keeps the
// answer alive in degraded form; none at all is an aggregation failure
// naming every lost source.
func (s *Service) respond(p plan, rc query.RequesterContext, results []query.SourceResult) (*query.Answer, error) {
	var missing []string
	succeeded := 0
	for _, r := range results {
		if r.Status == query.SourceSucceeded {
			succeeded++
		} else {
			missing = append(missing, r.Source)
		}
	}
	if succeeded == 0 {
		return nil, domain.NewAggregationFailure(missing)
	}

	answer := &query.Answer{
		Intent:         p.intent,
		Degraded:       len(missing) > 0,
		MissingSources: missing,
		Sources:        results,
		Fused:          fuse(results, rc),
		Suggestions:    suggestions(p.intent, rc.Role),
	}

	s.logger.Info("Query answered",
		zap.String("intent", string(p.intent)),
		zap.Int("sources", len(results)),
		zap.Bool("degraded", answer.Degraded),
	)

	return answer, nil
}

// fuse builds a single weighted ranking across populations. Scores are
// only comparable when every fused source ran the same embedder version
// and the requester supplied explicit weights covering every source;
// anything else keeps the labeled per-source sub-lists.
func fuse(results []query.SourceResult, rc query.RequesterContext) []match.Match {
	if len(rc.FusionWeights) == 0 {
		return nil
	}

	var sources []query.SourceResult
	for _, r := range results {
		if r.Kind == query.SourceMatch && r.Status == query.SourceSucceeded {
			sources = append(sources, r)
		}
	}
	if len(sources) < 2 {
		return nil
	}
	version := sources[0].EmbedderVersion
	for _, r := range sources[1:] {
		if r.EmbedderVersion != version {
			return nil
		}
	}

	k := rc.TopK
	if k <= 0 {
		k = request.DefaultK
	}

	fused := make([]match.Match, 0, len(sources)*k)
	for _, r := range sources {
		weight, ok := rc.FusionWeights[r.Population]
		if !ok {
			return nil
		}
		for _, m := range r.Matches {
			fused = append(fused, m.WithScore(weight*m.Score()))
		}
	}

	match.Order(fused)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}

// subjectText picks what a match call ranks against: the requester's
// own document when supplied, otherwise the query itself.
func subjectText(queryText string, rc query.RequesterContext) string {
	if t := strings.TrimSpace(rc.SubjectText); t != "" {
		return t
	}
	return queryText
}

func sourceName(call sourceCall) string {
	return string(call.population) + "." + string(call.kind)
}

// sanitizeSourceError reduces an internal failure to a caller-safe label.
func sanitizeSourceError(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "embedding quota exceeded"
	case errors.Is(err, domain.ErrEmbeddingFailure):
		return "embedding failure"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid input"
	default:
		return "internal error"
	}
}
