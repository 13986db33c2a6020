package matchdex

// MatchMode selects the ranking strategy for a match call.
type MatchMode string

// Match modes.
const (
	// ModeSemantic ranks by cosine similarity of embeddings; the default.
	ModeSemantic MatchMode = "semantic"
	// ModeKeyword ranks by BM25 over raw text.
	ModeKeyword MatchMode = "keyword"
	// ModeHybrid fuses semantic and keyword rankings.
	ModeHybrid MatchMode = "hybrid"
)

// Record is one resume or one job posting. Text is the only input to
// similarity scoring; skills, numerics and tags serve filtering and
// analytics. Numeric and tag keys must belong to the fixed structured
// field schema (experience_years, salary_min, salary_max, company,
// title, location, employment, education, owner).
type Record struct {
	ID       string
	Text     string
	Skills   []string
	Numerics map[string]float64
	Tags     map[string]string
}

// Match is one ranked hit.
type Match struct {
	ID      string
	Score   float64
	Rank    int
	Snippet string
	Skills  []string
	Tags    map[string]string
}

// MatchOptions tunes one match call. The zero value means semantic
// mode, no filters, top 10.
type MatchOptions struct {
	Mode         MatchMode
	Filters      FilterExpression
	K            int
	MinScore     float64
	ExcludeOwner string
}

// FilterExpression combines conditions with must/should/must_not
// boolean semantics.
type FilterExpression struct {
	Must    []FilterCondition
	Should  []FilterCondition
	MustNot []FilterCondition
}

// FilterCondition is a single clause: a tag match or a numeric range.
type FilterCondition struct {
	Key   string
	Match string       // non-empty for tag match
	Range *RangeFilter // non-nil for numeric range
}

// RangeFilter bounds a numeric field. gt/gte and lt/lte are mutually
// exclusive.
type RangeFilter struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// BatchResult is the outcome of one item in a batch submit.
type BatchResult struct {
	ID  string
	Err error
}

// OK reports whether the item was ingested.
func (r BatchResult) OK() bool { return r.Err == nil }

// Insights is the analytics summary over one population.
type Insights struct {
	Population string
	Total      int
	TopSkills  []SkillCount
	Seniority  Seniority
	Numerics   map[string]Distribution
	TopTags    map[string][]TagCount
}

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

// Seniority buckets records by experience years.
type Seniority struct {
	Entry   int
	Mid     int
	Senior  int
	Unknown int
}

// Distribution describes one numeric field across the population.
type Distribution struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}
