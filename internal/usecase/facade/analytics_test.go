package facade

import (
	"context"
	"math"
	"testing"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/record"
)

func TestAnalytics_Empty(t *testing.T) {
	svc := newTestFacade(newMockEngine())

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if summary.Total() != 0 {
		t.Errorf("total = %d, want 0", summary.Total())
	}
	if len(summary.TopSkills()) != 0 {
		t.Errorf("expected no skills, got %v", summary.TopSkills())
	}
	if summary.Numerics() != nil {
		t.Errorf("expected nil numerics, got %v", summary.Numerics())
	}
	if summary.TopTags() != nil {
		t.Errorf("expected nil tags, got %v", summary.TopTags())
	}
}

func TestAnalytics_TopSkills(t *testing.T) {
	eng := newMockEngine()
	eng.snapshot = []record.Record{
		mustRecord(t, "r1", []string{"go", "kubernetes"}, nil, nil),
		mustRecord(t, "r2", []string{"go", "python"}, nil, nil),
		mustRecord(t, "r3", []string{"go", "kubernetes"}, nil, nil),
	}
	svc := newTestFacade(eng)

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	want := []analytics.SkillCount{
		{Skill: "go", Count: 3},
		{Skill: "kubernetes", Count: 2},
		{Skill: "python", Count: 1},
	}
	got := summary.TopSkills()
	if len(got) != len(want) {
		t.Fatalf("skills = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("skill[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAnalytics_TopSkills_TiesAlphabetical(t *testing.T) {
	eng := newMockEngine()
	eng.snapshot = []record.Record{
		mustRecord(t, "r1", []string{"rust", "go"}, nil, nil),
	}
	svc := newTestFacade(eng)

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	got := summary.TopSkills()
	if len(got) != 2 || got[0].Skill != "go" || got[1].Skill != "rust" {
		t.Errorf("tie order = %v, want go before rust", got)
	}
}

func TestAnalytics_TopSkills_Capped(t *testing.T) {
	skills := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	eng := newMockEngine()
	eng.snapshot = []record.Record{mustRecord(t, "r1", skills, nil, nil)}
	svc := newTestFacade(eng)

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if len(summary.TopSkills()) != analytics.TopSkillsLimit {
		t.Errorf("len = %d, want %d", len(summary.TopSkills()), analytics.TopSkillsLimit)
	}
}

func TestAnalytics_SeniorityBuckets(t *testing.T) {
	years := func(v float64) map[string]float64 {
		return map[string]float64{domain.FieldExperienceYears: v}
	}
	eng := newMockEngine()
	eng.snapshot = []record.Record{
		mustRecord(t, "r1", nil, years(0), nil),   // entry
		mustRecord(t, "r2", nil, years(1.9), nil), // entry
		mustRecord(t, "r3", nil, years(2), nil),   // mid: boundary is inclusive
		mustRecord(t, "r4", nil, years(5.9), nil), // mid
		mustRecord(t, "r5", nil, years(6), nil),   // senior: boundary is inclusive
		mustRecord(t, "r6", nil, years(20), nil),  // senior
		mustRecord(t, "r7", nil, nil, nil),        // unknown
	}
	svc := newTestFacade(eng)

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	got := summary.SeniorityLevels()
	want := analytics.Seniority{Entry: 2, Mid: 2, Senior: 2, Unknown: 1}
	if got != want {
		t.Errorf("seniority = %+v, want %+v", got, want)
	}
}

func TestAnalytics_NumericDistributions(t *testing.T) {
	eng := newMockEngine()
	eng.snapshot = []record.Record{
		mustRecord(t, "r1", nil, map[string]float64{
			domain.FieldExperienceYears: 2,
			domain.FieldSalaryMin:       100000,
		}, nil),
		mustRecord(t, "r2", nil, map[string]float64{
			domain.FieldExperienceYears: 6,
		}, nil),
	}
	svc := newTestFacade(eng)

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}

	exp, ok := summary.Numerics()[domain.FieldExperienceYears]
	if !ok {
		t.Fatal("missing experience_years distribution")
	}
	if exp.Count != 2 || exp.Min != 2 || exp.Max != 6 {
		t.Errorf("experience = %+v", exp)
	}
	if math.Abs(exp.Mean-4) > 1e-9 {
		t.Errorf("mean = %f, want 4", exp.Mean)
	}

	sal, ok := summary.Numerics()[domain.FieldSalaryMin]
	if !ok {
		t.Fatal("missing salary_min distribution")
	}
	if sal.Count != 1 || sal.Mean != 100000 {
		t.Errorf("salary_min = %+v", sal)
	}

	// Никто не указал salary_max, поэтому поля в отчёте нет.
	if _, ok := summary.Numerics()[domain.FieldSalaryMax]; ok {
		t.Error("salary_max should be absent when no record carries it")
	}
}

func TestAnalytics_TopTags(t *testing.T) {
	eng := newMockEngine()
	eng.snapshot = []record.Record{
		mustRecord(t, "r1", nil, nil, map[string]string{domain.FieldCompany: "acme", domain.FieldLocation: "berlin"}),
		mustRecord(t, "r2", nil, nil, map[string]string{domain.FieldCompany: "acme"}),
		mustRecord(t, "r3", nil, nil, map[string]string{domain.FieldCompany: "globex"}),
	}
	svc := newTestFacade(eng)

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}

	companies := summary.TopTags()[domain.FieldCompany]
	if len(companies) != 2 {
		t.Fatalf("companies = %v", companies)
	}
	if companies[0] != (analytics.TagCount{Value: "acme", Count: 2}) {
		t.Errorf("top company = %+v", companies[0])
	}
	if companies[1] != (analytics.TagCount{Value: "globex", Count: 1}) {
		t.Errorf("second company = %+v", companies[1])
	}

	locations := summary.TopTags()[domain.FieldLocation]
	if len(locations) != 1 || locations[0].Value != "berlin" {
		t.Errorf("locations = %v", locations)
	}

	if _, ok := summary.TopTags()[domain.FieldEmployment]; ok {
		t.Error("employment should be absent when no record carries it")
	}
}

func TestAnalytics_PopulationPassthrough(t *testing.T) {
	svc := newTestFacade(newMockEngine())

	summary, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if summary.Population() != domain.PopulationResumes {
		t.Errorf("population = %s", summary.Population())
	}
}
