// Package analytics defines population summary statistics: what a
// facade reports about the records it currently holds.
package analytics

import "github.com/matchdex/matchdex/internal/domain"

// TopSkillsLimit is how many skills a summary ranks.
const TopSkillsLimit = 10

// TopTagsLimit is how many values per tag field a summary ranks.
const TopTagsLimit = 5

// Seniority bucket boundaries in experience years.
const (
	MidCareerYears = 2
	SeniorYears    = 6
)

// SkillCount is one skill frequency entry.
type SkillCount struct {
	Skill string
	Count int
}

// TagCount is one tag value frequency entry.
type TagCount struct {
	Value string
	Count int
}

// Distribution describes one numeric field across the population.
type Distribution struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Seniority buckets records by experience years:
// entry < 2 <= mid < 6 <= senior. Records without the field are unknown.
type Seniority struct {
	Entry   int
	Mid     int
	Senior  int
	Unknown int
}

// Summary is the analytics report over one population.
type Summary struct {
	population domain.Population
	total      int
	topSkills  []SkillCount
	seniority  Seniority
	numerics   map[string]Distribution
	topTags    map[string][]TagCount
}

// NewSummary creates a population summary.
func NewSummary(
	population domain.Population,
	total int,
	topSkills []SkillCount,
	seniority Seniority,
	numerics map[string]Distribution,
	topTags map[string][]TagCount,
) Summary {
	return Summary{
		population: population,
		total:      total,
		topSkills:  topSkills,
		seniority:  seniority,
		numerics:   numerics,
		topTags:    topTags,
	}
}

// Population returns the entity class the summary covers.
func (s *Summary) Population() domain.Population { return s.population }

// Total returns the population size.
func (s *Summary) Total() int { return s.total }

// TopSkills returns skill frequencies, most common first.
func (s *Summary) TopSkills() []SkillCount { return s.topSkills }

// SeniorityLevels returns the experience-year buckets.
func (s *Summary) SeniorityLevels() Seniority { return s.seniority }

// Numerics returns per-field distributions.
func (s *Summary) Numerics() map[string]Distribution { return s.numerics }

// TopTags returns per-tag-field value frequencies, most common first.
func (s *Summary) TopTags() map[string][]TagCount { return s.topTags }
