package matchdex

// MatchMode controls the retrieval algorithm.
type MatchMode string

// Match mode constants.
const (
	ModeSemantic MatchMode = "semantic"
	ModeKeyword  MatchMode = "keyword"
	ModeHybrid   MatchMode = "hybrid"
)

// Role identifies the requester's side of the market in chat queries.
type Role string

// Role constants.
const (
	RoleJobSeeker Role = "job_seeker"
	RoleEmployer  Role = "employer"
)

// SubmitRequest is the payload for submitting a record.
type SubmitRequest struct {
	ID       string             `json:"id,omitempty"`
	Text     string             `json:"text"`
	Skills   []string           `json:"skills,omitempty"`
	Numerics map[string]float64 `json:"numerics,omitempty"`
	Tags     map[string]string  `json:"tags,omitempty"`
}

// Record is a stored resume or job posting.
type Record struct {
	ID         string             `json:"id"`
	Population string             `json:"population"`
	Text       string             `json:"text"`
	Skills     []string           `json:"skills,omitempty"`
	Numerics   map[string]float64 `json:"numerics,omitempty"`
	Tags       map[string]string  `json:"tags,omitempty"`
}

// RecordList is a filtered listing of records.
type RecordList struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
}

// MatchRequest describes a ranked retrieval over one population.
type MatchRequest struct {
	Query        string            `json:"query"`
	Mode         MatchMode         `json:"mode,omitempty"`
	K            int               `json:"k,omitempty"`
	MinScore     float64           `json:"min_score,omitempty"`
	ExcludeOwner string            `json:"exclude_owner,omitempty"`
	Filters      *FilterExpression `json:"filters,omitempty"`
}

// FilterExpression is a set of must/should/must_not filter conditions.
type FilterExpression struct {
	Must    []FilterCondition `json:"must,omitempty"`
	Should  []FilterCondition `json:"should,omitempty"`
	MustNot []FilterCondition `json:"must_not,omitempty"`
}

// FilterCondition is a single filter clause.
type FilterCondition struct {
	Key   string       `json:"key"`
	Match string       `json:"match,omitempty"` // non-empty for tag match
	Range *RangeFilter `json:"range,omitempty"` // non-nil for numeric range
}

// RangeFilter defines numeric range boundaries.
type RangeFilter struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// Match is a single ranked hit.
type Match struct {
	ID      string            `json:"id"`
	Score   float64           `json:"score"`
	Rank    int               `json:"rank"`
	Snippet string            `json:"snippet,omitempty"`
	Skills  []string          `json:"skills,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// MatchResult is the outcome of a match request.
type MatchResult struct {
	Items           []Match `json:"items"`
	Total           int     `json:"total"`
	EmbedderVersion string  `json:"embedder_version"`

	// EmbeddingTokens is the token count the request consumed on the
	// embedding provider, taken from the response headers.
	EmbeddingTokens int `json:"-"`
}

// BatchResult is the outcome of one item in a batch submit.
type BatchResult struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Error  *BatchItemError `json:"error,omitempty"`
}

// OK reports whether the item was accepted.
func (r BatchResult) OK() bool { return r.Status == "ok" }

// BatchItemError describes why a single batch item was rejected.
type BatchItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchSubmitResult is the per-item outcome of a batch submit.
type BatchSubmitResult struct {
	Items     []BatchResult `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`

	EmbeddingTokens int `json:"-"`
}

// Insights is the analytics summary over one population.
type Insights struct {
	Population string                  `json:"population"`
	Total      int                     `json:"total"`
	TopSkills  []SkillCount            `json:"top_skills,omitempty"`
	Seniority  Seniority               `json:"seniority"`
	Numerics   map[string]Distribution `json:"numerics,omitempty"`
	TopTags    map[string][]TagCount   `json:"top_tags,omitempty"`
}

// SkillCount is one entry of a skill frequency ranking.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// TagCount is one entry of a tag value frequency ranking.
type TagCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Seniority is the experience-level breakdown of a population.
type Seniority struct {
	Entry   int `json:"entry"`
	Mid     int `json:"mid"`
	Senior  int `json:"senior"`
	Unknown int `json:"unknown"`
}

// Distribution summarises one numeric field across a population.
type Distribution struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}
