package matchdex

import (
	"errors"
	"testing"
	"time"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/batch"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/query"
	"github.com/matchdex/matchdex/internal/domain/record"
)

func TestToSubmitInput(t *testing.T) {
	in := toSubmitInput(Record{
		ID:       "cand-1",
		Text:     "golang engineer",
		Skills:   []string{"go"},
		Numerics: map[string]float64{"experience_years": 5},
		Tags:     map[string]string{"location": "berlin"},
	})

	if in.ID != "cand-1" || in.RawText != "golang engineer" {
		t.Errorf("input = %+v", in)
	}
	if len(in.Skills) != 1 || in.Skills[0] != "go" {
		t.Errorf("skills = %v", in.Skills)
	}
	if in.Numerics["experience_years"] != 5 {
		t.Errorf("numerics = %v", in.Numerics)
	}
	if in.Tags["location"] != "berlin" {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestFromInternalRecord(t *testing.T) {
	rec, err := record.New("cand-1", domain.PopulationResumes, "golang engineer",
		[]string{"Go", "Docker"},
		map[string]float64{"experience_years": 5},
		map[string]string{"location": "berlin"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := fromInternalRecord(rec)
	if out.ID != "cand-1" || out.Text != "golang engineer" {
		t.Errorf("record = %+v", out)
	}
	// Навыки нормализованы доменом: lowercase, сортировка.
	if len(out.Skills) != 2 || out.Skills[0] != "docker" || out.Skills[1] != "go" {
		t.Errorf("skills = %v", out.Skills)
	}
	if out.Tags["location"] != "berlin" {
		t.Errorf("tags = %v", out.Tags)
	}
}

func TestToMatchOptions(t *testing.T) {
	mo, err := toMatchOptions(MatchOptions{
		Mode:         ModeHybrid,
		K:            25,
		MinScore:     0.4,
		ExcludeOwner: "user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(mo.Mode) != "hybrid" {
		t.Errorf("mode = %q", mo.Mode)
	}
	if mo.K != 25 || mo.MinScore != 0.4 || mo.ExcludeOwner != "user-1" {
		t.Errorf("options = %+v", mo)
	}
	if !mo.Filters.IsEmpty() {
		t.Error("expected empty filter expression")
	}
}

func TestToInternalFilters(t *testing.T) {
	fe := FilterExpression{
		Must: []FilterCondition{
			{Key: "location", Match: "berlin"},
		},
	}

	expr, err := toInternalFilters(fe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expr.IsEmpty() {
		t.Error("expected non-empty expression")
	}
	if len(expr.Must()) != 1 {
		t.Fatalf("len(Must) = %d, want 1", len(expr.Must()))
	}
	if expr.Must()[0].Key() != "location" {
		t.Errorf("key = %q, want location", expr.Must()[0].Key())
	}
}

func TestToInternalFilters_Empty(t *testing.T) {
	expr, err := toInternalFilters(FilterExpression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expr.IsEmpty() {
		t.Error("expected empty expression")
	}
}

func TestToInternalFilters_Range(t *testing.T) {
	gte := 80000.0
	lte := 150000.0
	fe := FilterExpression{
		Must: []FilterCondition{
			{Key: "salary_min", Range: &RangeFilter{GTE: &gte, LTE: &lte}},
		},
	}

	expr, err := toInternalFilters(fe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cond := expr.Must()[0]
	if !cond.IsRange() {
		t.Error("expected range condition")
	}
	if *cond.Range().GTE() != 80000.0 {
		t.Errorf("GTE = %f, want 80000", *cond.Range().GTE())
	}
}

func TestToInternalFilters_InvalidRange(t *testing.T) {
	// gt and gte are mutually exclusive.
	gt := 5.0
	gte := 10.0
	fe := FilterExpression{
		Must: []FilterCondition{
			{Key: "experience_years", Range: &RangeFilter{GT: &gt, GTE: &gte}},
		},
	}
	_, err := toInternalFilters(fe)
	if err == nil {
		t.Fatal("expected error for mutually exclusive gt/gte")
	}
}

func TestToInternalFilters_UnknownField(t *testing.T) {
	fe := FilterExpression{
		Must: []FilterCondition{{Key: "favorite_color", Match: "blue"}},
	}
	_, err := toInternalFilters(fe)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestFromMatches(t *testing.T) {
	ms := []match.Match{
		match.New("a", 0.5, "snippet a", []string{"go"}, map[string]string{"location": "berlin"}),
		match.New("b", 0.9, "snippet b", nil, nil),
	}
	match.Order(ms)

	out := fromMatches(ms)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "b" || out[0].Rank != 1 || out[0].Score != 0.9 {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].ID != "a" || out[1].Snippet != "snippet a" {
		t.Errorf("out[1] = %+v", out[1])
	}
	if out[1].Tags["location"] != "berlin" {
		t.Errorf("tags = %v", out[1].Tags)
	}
}

func TestFromBatchResults(t *testing.T) {
	if results := fromBatchResults(nil); len(results) != 0 {
		t.Errorf("len = %d, want 0", len(results))
	}

	boom := errors.New("boom")
	out := fromBatchResults([]batch.Result{
		batch.NewOK("a"),
		batch.NewError("b", boom),
	})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if !out[0].OK() || out[0].ID != "a" {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].OK() || !errors.Is(out[1].Err, boom) {
		t.Errorf("out[1] = %+v", out[1])
	}
}

func TestFromSummary(t *testing.T) {
	s := analytics.NewSummary(
		domain.PopulationJobs,
		3,
		[]analytics.SkillCount{{Skill: "go", Count: 2}},
		analytics.Seniority{Entry: 1, Senior: 2},
		map[string]analytics.Distribution{
			"salary_min": {Count: 3, Min: 50000, Max: 120000, Mean: 80000},
		},
		map[string][]analytics.TagCount{
			"location": {{Value: "berlin", Count: 2}},
		},
	)

	in := fromSummary(&s)
	if in.Population != "jobs" || in.Total != 3 {
		t.Errorf("insights = %+v", in)
	}
	if len(in.TopSkills) != 1 || in.TopSkills[0].Skill != "go" {
		t.Errorf("top skills = %+v", in.TopSkills)
	}
	if in.Seniority.Senior != 2 || in.Seniority.Entry != 1 {
		t.Errorf("seniority = %+v", in.Seniority)
	}
	if d := in.Numerics["salary_min"]; d.Mean != 80000 {
		t.Errorf("distribution = %+v", d)
	}
	if tags := in.TopTags["location"]; len(tags) != 1 || tags[0].Value != "berlin" {
		t.Errorf("top tags = %+v", in.TopTags)
	}
}

func TestFromAnswer(t *testing.T) {
	summary := analytics.NewSummary(domain.PopulationResumes, 1, nil, analytics.Seniority{}, nil, nil)
	ans := &query.Answer{
		Intent:         query.IntentAnalytics,
		Degraded:       true,
		MissingSources: []string{"jobs.analytics"},
		Sources: []query.SourceResult{
			{
				Source:     "resumes.analytics",
				Population: domain.PopulationResumes,
				Kind:       query.SourceAnalytics,
				Status:     query.SourceSucceeded,
				Summary:    &summary,
				Elapsed:    12 * time.Millisecond,
			},
			{
				Source:     "jobs.analytics",
				Population: domain.PopulationJobs,
				Kind:       query.SourceAnalytics,
				Status:     query.SourceTimedOut,
				Error:      "timed out",
			},
		},
		Suggestions: []string{"try again"},
	}

	out := fromAnswer(ans)
	if out.Intent != "analytics_request" || !out.Degraded {
		t.Errorf("answer = %+v", out)
	}
	if len(out.MissingSources) != 1 || out.MissingSources[0] != "jobs.analytics" {
		t.Errorf("missing = %v", out.MissingSources)
	}
	if len(out.Sources) != 2 {
		t.Fatalf("len(sources) = %d, want 2", len(out.Sources))
	}
	if out.Sources[0].Summary == nil || out.Sources[0].Summary.Total != 1 {
		t.Errorf("sources[0] = %+v", out.Sources[0])
	}
	if out.Sources[0].Elapsed != 12*time.Millisecond {
		t.Errorf("elapsed = %v", out.Sources[0].Elapsed)
	}
	if out.Sources[1].Status != SourceTimedOut || out.Sources[1].Error != "timed out" {
		t.Errorf("sources[1] = %+v", out.Sources[1])
	}
	if out.Fused != nil {
		t.Errorf("fused = %+v, want nil", out.Fused)
	}
}
