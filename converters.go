package matchdex

import (
	"fmt"

	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/batch"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/query"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
	"github.com/matchdex/matchdex/internal/domain/search/mode"
	facadeuc "github.com/matchdex/matchdex/internal/usecase/facade"
)

func toSubmitInput(rec Record) facadeuc.SubmitInput {
	return facadeuc.SubmitInput{
		ID:       rec.ID,
		RawText:  rec.Text,
		Skills:   rec.Skills,
		Numerics: rec.Numerics,
		Tags:     rec.Tags,
	}
}

func fromInternalRecord(rec record.Record) Record {
	return Record{
		ID:       rec.ID(),
		Text:     rec.RawText(),
		Skills:   rec.Skills(),
		Numerics: rec.Numerics(),
		Tags:     rec.Tags(),
	}
}

func toMatchOptions(opts MatchOptions) (facadeuc.MatchOptions, error) {
	filters, err := toInternalFilters(opts.Filters)
	if err != nil {
		return facadeuc.MatchOptions{}, err
	}
	return facadeuc.MatchOptions{
		Mode:         mode.Mode(opts.Mode),
		Filters:      filters,
		K:            opts.K,
		MinScore:     opts.MinScore,
		ExcludeOwner: opts.ExcludeOwner,
	}, nil
}

func toInternalFilters(fe FilterExpression) (filter.Expression, error) {
	must, err := toConditions(fe.Must)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter must: %w", err)
	}
	should, err := toConditions(fe.Should)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter should: %w", err)
	}
	mustNot, err := toConditions(fe.MustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter must_not: %w", err)
	}
	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter expression: %w", err)
	}
	return expr, nil
}

func toConditions(conds []FilterCondition) ([]filter.Condition, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, len(conds))
	for i, c := range conds {
		var err error
		if c.Range != nil {
			r, rerr := filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
			if rerr != nil {
				return nil, fmt.Errorf("filter %q: %w", c.Key, rerr)
			}
			out[i], err = filter.NewRange(c.Key, r)
		} else {
			out[i], err = filter.NewMatch(c.Key, c.Match)
		}
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", c.Key, err)
		}
	}
	return out, nil
}

func fromMatches(matches []match.Match) []Match {
	out := make([]Match, len(matches))
	for i := range matches {
		m := &matches[i]
		out[i] = Match{
			ID:      m.ID(),
			Score:   m.Score(),
			Rank:    m.Rank(),
			Snippet: m.Snippet(),
			Skills:  m.Skills(),
			Tags:    m.Tags(),
		}
	}
	return out
}

func fromBatchResults(results []batch.Result) []BatchResult {
	out := make([]BatchResult, len(results))
	for i, r := range results {
		out[i] = BatchResult{ID: r.ID(), Err: r.Err()}
	}
	return out
}

func fromSummary(s *analytics.Summary) Insights {
	in := Insights{
		Population: string(s.Population()),
		Total:      s.Total(),
		Seniority: Seniority{
			Entry:   s.SeniorityLevels().Entry,
			Mid:     s.SeniorityLevels().Mid,
			Senior:  s.SeniorityLevels().Senior,
			Unknown: s.SeniorityLevels().Unknown,
		},
	}
	for _, sc := range s.TopSkills() {
		in.TopSkills = append(in.TopSkills, SkillCount{Skill: sc.Skill, Count: sc.Count})
	}
	if numerics := s.Numerics(); len(numerics) > 0 {
		in.Numerics = make(map[string]Distribution, len(numerics))
		for name, d := range numerics {
			in.Numerics[name] = Distribution{Count: d.Count, Min: d.Min, Max: d.Max, Mean: d.Mean}
		}
	}
	if topTags := s.TopTags(); len(topTags) > 0 {
		in.TopTags = make(map[string][]TagCount, len(topTags))
		for name, counts := range topTags {
			out := make([]TagCount, len(counts))
			for i, tc := range counts {
				out[i] = TagCount{Value: tc.Value, Count: tc.Count}
			}
			in.TopTags[name] = out
		}
	}
	return in
}

func fromAnswer(a *query.Answer) *Answer {
	out := &Answer{
		Intent:         string(a.Intent),
		Degraded:       a.Degraded,
		MissingSources: a.MissingSources,
		Suggestions:    a.Suggestions,
	}
	// Fused stays nil when no fusion was requested.
	if a.Fused != nil {
		out.Fused = fromMatches(a.Fused)
	}
	out.Sources = make([]ChatSource, len(a.Sources))
	for i := range a.Sources {
		src := &a.Sources[i]
		cs := ChatSource{
			Source:          src.Source,
			Population:      string(src.Population),
			Kind:            string(src.Kind),
			Status:          SourceStatus(src.Status),
			Error:           src.Error,
			Matches:         fromMatches(src.Matches),
			EmbedderVersion: src.EmbedderVersion,
			Elapsed:         src.Elapsed,
		}
		if src.Summary != nil {
			summary := fromSummary(src.Summary)
			cs.Summary = &summary
		}
		out.Sources[i] = cs
	}
	return out
}
