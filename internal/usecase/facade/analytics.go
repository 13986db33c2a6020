package facade

import (
	"sort"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	"github.com/matchdex/matchdex/internal/domain/record"
)

// distributionFields are the numeric fields summarized per population.
var distributionFields = []string{
	domain.FieldExperienceYears,
	domain.FieldSalaryMin,
	domain.FieldSalaryMax,
}

// tagFields are the tag fields ranked by value frequency.
var tagFields = []string{
	domain.FieldCompany,
	domain.FieldLocation,
	domain.FieldEmployment,
}

func summarize(population domain.Population, records []record.Record) analytics.Summary {
	skillCounts := make(map[string]int)
	tagCounts := make(map[string]map[string]int, len(tagFields))
	numericValues := make(map[string][]float64, len(distributionFields))
	var seniority analytics.Seniority

	for _, rec := range records {
		for _, s := range rec.Skills() {
			skillCounts[s]++
		}

		for _, f := range tagFields {
			if v, ok := rec.Tags()[f]; ok && v != "" {
				if tagCounts[f] == nil {
					tagCounts[f] = make(map[string]int)
				}
				tagCounts[f][v]++
			}
		}

		for _, f := range distributionFields {
			if v, ok := rec.Numerics()[f]; ok {
				numericValues[f] = append(numericValues[f], v)
			}
		}

		bucketSeniority(&seniority, rec)
	}

	return analytics.NewSummary(
		population,
		len(records),
		topSkills(skillCounts),
		seniority,
		distributions(numericValues),
		topTags(tagCounts),
	)
}

// bucketSeniority buckets one record by experience years:
// entry < 2 <= mid < 6 <= senior; no field means unknown.
func bucketSeniority(s *analytics.Seniority, rec record.Record) {
	years, ok := rec.Numerics()[domain.FieldExperienceYears]
	switch {
	case !ok:
		s.Unknown++
	case years < analytics.MidCareerYears:
		s.Entry++
	case years < analytics.SeniorYears:
		s.Mid++
	default:
		s.Senior++
	}
}

func topSkills(counts map[string]int) []analytics.SkillCount {
	out := make([]analytics.SkillCount, 0, len(counts))
	for skill, n := range counts {
		out = append(out, analytics.SkillCount{Skill: skill, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Skill < out[j].Skill
	})
	if len(out) > analytics.TopSkillsLimit {
		out = out[:analytics.TopSkillsLimit]
	}
	return out
}

func distributions(values map[string][]float64) map[string]analytics.Distribution {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]analytics.Distribution, len(values))
	for field, vs := range values {
		d := analytics.Distribution{
			Count: len(vs),
			Min:   vs[0],
			Max:   vs[0],
		}
		var sum float64
		for _, v := range vs {
			if v < d.Min {
				d.Min = v
			}
			if v > d.Max {
				d.Max = v
			}
			sum += v
		}
		d.Mean = sum / float64(len(vs))
		out[field] = d
	}
	return out
}

func topTags(counts map[string]map[string]int) map[string][]analytics.TagCount {
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string][]analytics.TagCount, len(counts))
	for field, values := range counts {
		ranked := make([]analytics.TagCount, 0, len(values))
		for v, n := range values {
			ranked = append(ranked, analytics.TagCount{Value: v, Count: n})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].Count != ranked[j].Count {
				return ranked[i].Count > ranked[j].Count
			}
			return ranked[i].Value < ranked[j].Value
		})
		if len(ranked) > analytics.TopTagsLimit {
			ranked = ranked[:analytics.TopTagsLimit]
		}
		out[field] = ranked
	}
	return out
}

func sortRecordsByID(records []record.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID() < records[j].ID() })
}
