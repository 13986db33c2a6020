package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/query"
	"github.com/matchdex/matchdex/internal/usecase/facade"
)

type fakeSource struct {
	mu             sync.Mutex
	population     domain.Population
	version        string
	matches        []match.Match
	matchErr       error
	summary        analytics.Summary
	analyticsErr   error
	delay          time.Duration
	gate           func(ctx context.Context) error
	matchCalls     int
	analyticsCalls int
	lastQuery      string
	lastOpts       facade.MatchOptions
}

func (f *fakeSource) Population() domain.Population { return f.population }

func (f *fakeSource) EmbedderVersion() string { return f.version }

func (f *fakeSource) wait(ctx context.Context) error {
	if f.gate != nil {
		return f.gate(ctx)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeSource) Match(ctx context.Context, queryText string, opts facade.MatchOptions) ([]match.Match, error) {
	f.mu.Lock()
	f.matchCalls++
	f.lastQuery = queryText
	f.lastOpts = opts
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.matches, f.matchErr
}

func (f *fakeSource) Analytics(ctx context.Context) (analytics.Summary, error) {
	f.mu.Lock()
	f.analyticsCalls++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return analytics.Summary{}, err
	}
	return f.summary, f.analyticsErr
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matchCalls + f.analyticsCalls
}

func newFakeSources() (resumes, jobs *fakeSource) {
	resumes = &fakeSource{population: domain.PopulationResumes, version: "hash/v1-384d"}
	jobs = &fakeSource{population: domain.PopulationJobs, version: "hash/v1-384d"}
	return resumes, jobs
}

func newTestAggregator(resumes, jobs *fakeSource, timeout time.Duration) *Service {
	return New(resumes, jobs, timeout, zap.NewNop())
}

func mkMatch(id string, score float64) match.Match {
	return match.New(id, score, "snippet", nil, nil)
}

func TestAnswer_EmptyQuery(t *testing.T) {
	resumes, jobs := newFakeSources()
	svc := newTestAggregator(resumes, jobs, 0)

	_, err := svc.Answer(context.Background(), "   ", query.RequesterContext{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswer_InvalidRole(t *testing.T) {
	resumes, jobs := newFakeSources()
	svc := newTestAggregator(resumes, jobs, 0)

	_, err := svc.Answer(context.Background(), "find me jobs", query.RequesterContext{Role: "wizard"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswer_UnsupportedFailsFast(t *testing.T) {
	resumes, jobs := newFakeSources()
	svc := newTestAggregator(resumes, jobs, 0)

	_, err := svc.Answer(context.Background(), "tell me a joke", query.RequesterContext{})
	if !errors.Is(err, domain.ErrUnsupportedQuery) {
		t.Fatalf("expected ErrUnsupportedQuery, got %v", err)
	}
	if resumes.calls() != 0 || jobs.calls() != 0 {
		t.Error("unsupported intent must dispatch nothing")
	}
}

func TestAnswer_MatchJobSeeker(t *testing.T) {
	resumes, jobs := newFakeSources()
	jobs.matches = []match.Match{mkMatch("job-1", 0.9)}
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{
		Role:     query.RoleJobSeeker,
		OwnerID:  "user-7",
		TopK:     5,
		MinScore: 0.2,
	}
	answer, err := svc.Answer(context.Background(), "find me the best jobs", rc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if answer.Intent != query.IntentMatch {
		t.Errorf("intent = %s", answer.Intent)
	}
	if answer.Degraded {
		t.Error("answer must not be degraded")
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Source != "jobs.match" {
		t.Fatalf("sources = %+v", answer.Sources)
	}
	if got := answer.Sources[0].Matches; len(got) != 1 || got[0].ID() != "job-1" {
		t.Errorf("matches = %v", got)
	}
	if resumes.calls() != 0 {
		t.Error("resumes facade must stay untouched")
	}
	if jobs.lastQuery != "find me the best jobs" {
		t.Errorf("query = %q", jobs.lastQuery)
	}
	if jobs.lastOpts.K != 5 || jobs.lastOpts.MinScore != 0.2 || jobs.lastOpts.ExcludeOwner != "user-7" {
		t.Errorf("options not passed: %+v", jobs.lastOpts)
	}
	if len(answer.Suggestions) == 0 {
		t.Error("expected follow-up suggestions")
	}
}

func TestAnswer_SubjectTextRanksInsteadOfQuery(t *testing.T) {
	resumes, jobs := newFakeSources()
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{
		Role:        query.RoleJobSeeker,
		SubjectText: "8 years of Go, Kubernetes and gRPC",
	}
	if _, err := svc.Answer(context.Background(), "find me the best jobs", rc); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if jobs.lastQuery != "8 years of Go, Kubernetes and gRPC" {
		t.Errorf("match ran against %q, want the subject text", jobs.lastQuery)
	}
}

func TestAnswer_CrossMatchOneSourceTimedOut(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.matches = []match.Match{mkMatch("res-1", 0.8)}
	jobs.delay = 200 * time.Millisecond
	svc := newTestAggregator(resumes, jobs, 20*time.Millisecond)

	rc := query.RequesterContext{SubjectText: "senior Go engineer"}
	answer, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if err != nil {
		t.Fatalf("a degraded answer must not raise: %v", err)
	}

	if !answer.Degraded {
		t.Error("expected degraded answer")
	}
	if len(answer.MissingSources) != 1 || answer.MissingSources[0] != "jobs.match" {
		t.Errorf("missing = %v", answer.MissingSources)
	}

	var timedOut, succeeded *query.SourceResult
	for i := range answer.Sources {
		switch answer.Sources[i].Status {
		case query.SourceTimedOut:
			timedOut = &answer.Sources[i]
		case query.SourceSucceeded:
			succeeded = &answer.Sources[i]
		}
	}
	if timedOut == nil || timedOut.Source != "jobs.match" {
		t.Fatalf("expected jobs.match to time out, sources = %+v", answer.Sources)
	}
	if succeeded == nil || len(succeeded.Matches) != 1 {
		t.Fatal("surviving sub-list must be carried")
	}
}

func TestAnswer_AllSourcesFailed(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.matchErr = fmt.Errorf("index broken")
	jobs.matchErr = fmt.Errorf("index broken")
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{SubjectText: "senior Go engineer"}
	_, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if !errors.Is(err, domain.ErrAggregationFailure) {
		t.Fatalf("expected ErrAggregationFailure, got %v", err)
	}

	var aggErr *domain.AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected *AggregationError, got %T", err)
	}
	if len(aggErr.Sources) != 2 {
		t.Errorf("failed sources = %v", aggErr.Sources)
	}
}

func TestAnswer_SourceErrorIsSanitized(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.matches = []match.Match{mkMatch("res-1", 0.8)}
	jobs.matchErr = fmt.Errorf("api key sk-123 rejected: %w", domain.ErrEmbeddingFailure)
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{SubjectText: "senior Go engineer"}
	answer, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	for _, src := range answer.Sources {
		if src.Status != query.SourceFailed {
			continue
		}
		if src.Error != "embedding failure" {
			t.Errorf("error not sanitized: %q", src.Error)
		}
	}
}

func TestAnswer_AnalyticsBothPopulations(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.summary = analytics.NewSummary(domain.PopulationResumes, 3, nil, analytics.Seniority{}, nil, nil)
	jobs.summary = analytics.NewSummary(domain.PopulationJobs, 5, nil, analytics.Seniority{}, nil, nil)
	svc := newTestAggregator(resumes, jobs, 0)

	answer, err := svc.Answer(context.Background(), "what skills are in demand", query.RequesterContext{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Intent != query.IntentAnalytics {
		t.Errorf("intent = %s", answer.Intent)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("sources = %+v", answer.Sources)
	}
	for _, src := range answer.Sources {
		if src.Kind != query.SourceAnalytics {
			t.Errorf("kind = %s", src.Kind)
		}
		if src.Summary == nil {
			t.Errorf("source %s carries no summary", src.Source)
		}
	}
	if resumes.analyticsCalls != 1 || jobs.analyticsCalls != 1 {
		t.Errorf("analytics calls resumes=%d jobs=%d", resumes.analyticsCalls, jobs.analyticsCalls)
	}
}

func TestAnswer_EmployerAnalyticsTargetsResumes(t *testing.T) {
	resumes, jobs := newFakeSources()
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{Role: query.RoleEmployer}
	if _, err := svc.Answer(context.Background(), "what talent is out there", rc); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resumes.analyticsCalls != 1 || jobs.calls() != 0 {
		t.Errorf("calls resumes=%d jobs=%d", resumes.analyticsCalls, jobs.calls())
	}
}

func TestAnswer_FusionWithExplicitWeights(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.matches = []match.Match{mkMatch("res-1", 0.4)}
	jobs.matches = []match.Match{mkMatch("job-1", 0.9)}
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{
		SubjectText: "senior Go engineer",
		TopK:        5,
		FusionWeights: map[domain.Population]float64{
			domain.PopulationResumes: 2.0,
			domain.PopulationJobs:    0.5,
		},
	}
	answer, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if len(answer.Fused) != 2 {
		t.Fatalf("fused = %v", answer.Fused)
	}
	// 0.4*2.0 = 0.8 outranks 0.9*0.5 = 0.45.
	if answer.Fused[0].ID() != "res-1" || answer.Fused[1].ID() != "job-1" {
		t.Errorf("fused order = [%s, %s]", answer.Fused[0].ID(), answer.Fused[1].ID())
	}
	if answer.Fused[0].Rank() != 1 || answer.Fused[1].Rank() != 2 {
		t.Error("fused ranks must be reassigned")
	}
}

func TestAnswer_NoFusionWithoutWeights(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.matches = []match.Match{mkMatch("res-1", 0.4)}
	jobs.matches = []match.Match{mkMatch("job-1", 0.9)}
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{SubjectText: "senior Go engineer"}
	answer, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Fused != nil {
		t.Errorf("expected labeled sub-lists only, got fused %v", answer.Fused)
	}
}

func TestAnswer_NoFusionAcrossEmbedderVersions(t *testing.T) {
	resumes, jobs := newFakeSources()
	resumes.matches = []match.Match{mkMatch("res-1", 0.4)}
	jobs.matches = []match.Match{mkMatch("job-1", 0.9)}
	jobs.version = "hash/v2-384d"
	svc := newTestAggregator(resumes, jobs, 0)

	rc := query.RequesterContext{
		SubjectText: "senior Go engineer",
		FusionWeights: map[domain.Population]float64{
			domain.PopulationResumes: 1.0,
			domain.PopulationJobs:    1.0,
		},
	}
	answer, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Fused != nil {
		t.Error("scores from different embedder versions must not be fused")
	}
}

func TestAnswer_SourcesRunConcurrently(t *testing.T) {
	resumes, jobs := newFakeSources()

	// Оба источника должны войти в вызов до того, как любой из них
	// завершится; при последовательном запуске первый упрётся в таймаут.
	entered := make(chan struct{}, 2)
	proceed := make(chan struct{})
	go func() {
		<-entered
		<-entered
		close(proceed)
	}()
	gate := func(ctx context.Context) error {
		entered <- struct{}{}
		select {
		case <-proceed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	resumes.gate = gate
	jobs.gate = gate

	svc := newTestAggregator(resumes, jobs, time.Second)

	rc := query.RequesterContext{SubjectText: "senior Go engineer"}
	answer, err := svc.Answer(context.Background(), "compare my resume against open positions", rc)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.Degraded {
		t.Fatalf("sources blocked each other: %+v", answer.Sources)
	}
}
