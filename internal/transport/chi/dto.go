package chi

import (
	"errors"
	"fmt"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/analytics"
	dombatch "github.com/matchdex/matchdex/internal/domain/batch"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/query"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
	"github.com/matchdex/matchdex/internal/domain/search/mode"
	facadeuc "github.com/matchdex/matchdex/internal/usecase/facade"
)

// Error response codes.
const (
	codeBadRequest             = "bad_request"
	codeValidationFailed       = "validation_failed"
	codeUnauthorized           = "unauthorized"
	codeNotFound               = "not_found"
	codeRecordNotFound         = "record_not_found"
	codeVectorDimMismatch      = "vector_dim_mismatch"
	codeUnsupportedQuery       = "unsupported_query"
	codeRateLimited            = "rate_limited"
	codeEmbeddingQuotaExceeded = "embedding_quota_exceeded"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeEmbeddingFailure       = "embedding_failure"
	codeAggregationFailure     = "aggregation_failure"
	codeKeywordNotSupported    = "keyword_search_not_supported"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type submitRequest struct {
	ID       string             `json:"id,omitempty"`
	Text     string             `json:"text"`
	Skills   []string           `json:"skills,omitempty"`
	Numerics map[string]float64 `json:"numerics,omitempty"`
	Tags     map[string]string  `json:"tags,omitempty"`
}

type batchSubmitRequest struct {
	Items []submitRequest `json:"items"`
}

type matchRequest struct {
	Query        string            `json:"query"`
	Mode         string            `json:"mode,omitempty"`
	K            int               `json:"k,omitempty"`
	MinScore     float64           `json:"min_score,omitempty"`
	ExcludeOwner string            `json:"exclude_owner,omitempty"`
	Filters      *filterExpression `json:"filters,omitempty"`
}

type filterExpression struct {
	Must    []filterCondition `json:"must,omitempty"`
	Should  []filterCondition `json:"should,omitempty"`
	MustNot []filterCondition `json:"must_not,omitempty"`
}

type filterCondition struct {
	Key   string       `json:"key"`
	Match string       `json:"match,omitempty"`
	Range *rangeFilter `json:"range,omitempty"`
}

type rangeFilter struct {
	Gt  *float64 `json:"gt,omitempty"`
	Gte *float64 `json:"gte,omitempty"`
	Lt  *float64 `json:"lt,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

type chatRequest struct {
	Query            string               `json:"query"`
	RequesterContext *requesterContextDTO `json:"requester_context,omitempty"`
}

type requesterContextDTO struct {
	Role          string             `json:"role,omitempty"`
	SubjectText   string             `json:"subject_text,omitempty"`
	OwnerID       string             `json:"owner_id,omitempty"`
	TopK          int                `json:"top_k,omitempty"`
	MinScore      float64            `json:"min_score,omitempty"`
	FusionWeights map[string]float64 `json:"fusion_weights,omitempty"`
}

type recordResponse struct {
	ID         string             `json:"id"`
	Population string             `json:"population"`
	Text       string             `json:"text"`
	Skills     []string           `json:"skills,omitempty"`
	Numerics   map[string]float64 `json:"numerics,omitempty"`
	Tags       map[string]string  `json:"tags,omitempty"`
}

type recordListResponse struct {
	Items []recordResponse `json:"items"`
	Total int              `json:"total"`
}

type batchResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchSubmitResponse struct {
	Items     []batchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

type matchItem struct {
	ID      string            `json:"id"`
	Score   float64           `json:"score"`
	Rank    int               `json:"rank"`
	Snippet string            `json:"snippet,omitempty"`
	Skills  []string          `json:"skills,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

type matchResponse struct {
	Items           []matchItem `json:"items"`
	Total           int         `json:"total"`
	EmbedderVersion string      `json:"embedder_version"`
}

type distributionDTO struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

type skillCountDTO struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type tagCountDTO struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type seniorityDTO struct {
	Entry   int `json:"entry"`
	Mid     int `json:"mid"`
	Senior  int `json:"senior"`
	Unknown int `json:"unknown"`
}

type insightsResponse struct {
	Population string                     `json:"population"`
	Total      int                        `json:"total"`
	TopSkills  []skillCountDTO            `json:"top_skills,omitempty"`
	Seniority  seniorityDTO               `json:"seniority"`
	Numerics   map[string]distributionDTO `json:"numerics,omitempty"`
	TopTags    map[string][]tagCountDTO   `json:"top_tags,omitempty"`
}

type sourceResultDTO struct {
	Source          string            `json:"source"`
	Population      string            `json:"population"`
	Kind            string            `json:"kind"`
	Status          string            `json:"status"`
	Error           string            `json:"error,omitempty"`
	Matches         []matchItem       `json:"matches,omitempty"`
	Summary         *insightsResponse `json:"summary,omitempty"`
	EmbedderVersion string            `json:"embedder_version,omitempty"`
	ElapsedMs       int64             `json:"elapsed_ms"`
}

type chatResponse struct {
	Intent         string            `json:"intent"`
	Degraded       bool              `json:"degraded"`
	MissingSources []string          `json:"missing_sources,omitempty"`
	Sources        []sourceResultDTO `json:"sources"`
	Fused          []matchItem       `json:"fused,omitempty"`
	Suggestions    []string          `json:"suggestions,omitempty"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

type usageMetricsDTO struct {
	EmbeddingRequests int  `json:"embedding_requests"`
	Tokens            int  `json:"tokens"`
	CostMillidollars  *int `json:"cost_millidollars,omitempty"`
}

type budgetStatusDTO struct {
	TokensLimit     int    `json:"tokens_limit"`
	TokensRemaining int    `json:"tokens_remaining"`
	IsExhausted     bool   `json:"is_exhausted"`
	ResetsAt        *int64 `json:"resets_at,omitempty"`
}

type usageResponse struct {
	Period        string          `json:"period"`
	Provider      string          `json:"provider,omitempty"`
	PeriodStartAt *int64          `json:"period_start_at,omitempty"`
	PeriodEndAt   *int64          `json:"period_end_at,omitempty"`
	Usage         usageMetricsDTO `json:"usage"`
	Budget        budgetStatusDTO `json:"budget"`
}

func submitInputFromDTO(req submitRequest) facadeuc.SubmitInput {
	return facadeuc.SubmitInput{
		ID:       req.ID,
		RawText:  req.Text,
		Skills:   req.Skills,
		Numerics: req.Numerics,
		Tags:     req.Tags,
	}
}

func recordToDTO(rec record.Record) recordResponse {
	return recordResponse{
		ID:         rec.ID(),
		Population: string(rec.Population()),
		Text:       rec.RawText(),
		Skills:     rec.Skills(),
		Numerics:   rec.Numerics(),
		Tags:       rec.Tags(),
	}
}

func matchToDTO(m match.Match) matchItem {
	return matchItem{
		ID:      m.ID(),
		Score:   m.Score(),
		Rank:    m.Rank(),
		Snippet: m.Snippet(),
		Skills:  m.Skills(),
		Tags:    m.Tags(),
	}
}

func matchesToDTO(matches []match.Match) []matchItem {
	if len(matches) == 0 {
		return nil
	}
	items := make([]matchItem, len(matches))
	for i, m := range matches {
		items[i] = matchToDTO(m)
	}
	return items
}

func summaryToDTO(sum *analytics.Summary) *insightsResponse {
	if sum == nil {
		return nil
	}

	var skills []skillCountDTO
	for _, sc := range sum.TopSkills() {
		skills = append(skills, skillCountDTO{Skill: sc.Skill, Count: sc.Count})
	}

	var numerics map[string]distributionDTO
	if len(sum.Numerics()) > 0 {
		numerics = make(map[string]distributionDTO, len(sum.Numerics()))
		for k, d := range sum.Numerics() {
			numerics[k] = distributionDTO{Count: d.Count, Min: d.Min, Max: d.Max, Mean: d.Mean}
		}
	}

	var tags map[string][]tagCountDTO
	if len(sum.TopTags()) > 0 {
		tags = make(map[string][]tagCountDTO, len(sum.TopTags()))
		for field, vals := range sum.TopTags() {
			list := make([]tagCountDTO, len(vals))
			for i, tc := range vals {
				list[i] = tagCountDTO{Value: tc.Value, Count: tc.Count}
			}
			tags[field] = list
		}
	}

	sen := sum.SeniorityLevels()
	return &insightsResponse{
		Population: string(sum.Population()),
		Total:      sum.Total(),
		TopSkills:  skills,
		Seniority:  seniorityDTO{Entry: sen.Entry, Mid: sen.Mid, Senior: sen.Senior, Unknown: sen.Unknown},
		Numerics:   numerics,
		TopTags:    tags,
	}
}

func answerToDTO(ans *query.Answer) chatResponse {
	sources := make([]sourceResultDTO, len(ans.Sources))
	for i, src := range ans.Sources {
		sources[i] = sourceResultDTO{
			Source:          src.Source,
			Population:      string(src.Population),
			Kind:            string(src.Kind),
			Status:          string(src.Status),
			Error:           src.Error,
			Matches:         matchesToDTO(src.Matches),
			Summary:         summaryToDTO(src.Summary),
			EmbedderVersion: src.EmbedderVersion,
			ElapsedMs:       src.Elapsed.Milliseconds(),
		}
	}

	return chatResponse{
		Intent:         string(ans.Intent),
		Degraded:       ans.Degraded,
		MissingSources: ans.MissingSources,
		Sources:        sources,
		Fused:          matchesToDTO(ans.Fused),
		Suggestions:    ans.Suggestions,
	}
}

func requesterContextFromDTO(rc *requesterContextDTO) query.RequesterContext {
	if rc == nil {
		return query.RequesterContext{}
	}

	var weights map[domain.Population]float64
	if len(rc.FusionWeights) > 0 {
		weights = make(map[domain.Population]float64, len(rc.FusionWeights))
		for pop, w := range rc.FusionWeights {
			weights[domain.Population(pop)] = w
		}
	}

	return query.RequesterContext{
		Role:          query.Role(rc.Role),
		SubjectText:   rc.SubjectText,
		OwnerID:       rc.OwnerID,
		TopK:          rc.TopK,
		MinScore:      rc.MinScore,
		FusionWeights: weights,
	}
}

func matchOptionsFromDTO(req matchRequest) (facadeuc.MatchOptions, error) {
	filters, err := filtersFromDTO(req.Filters)
	if err != nil {
		return facadeuc.MatchOptions{}, fmt.Errorf("parse filters: %w", err)
	}

	return facadeuc.MatchOptions{
		Mode:         mode.Mode(req.Mode),
		Filters:      filters,
		K:            req.K,
		MinScore:     req.MinScore,
		ExcludeOwner: req.ExcludeOwner,
	}, nil
}

func filtersFromDTO(f *filterExpression) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}

	must, err := conditionsFromDTO(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditionsFromDTO(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromDTO(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}

	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("new expression: %w", err)
	}
	return expr, nil
}

func conditionsFromDTO(cs []filterCondition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromDTO(c filterCondition) (filter.Condition, error) {
	if c.Match != "" && c.Range != nil {
		return filter.Condition{},
			fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
	}
	if c.Match != "" {
		cond, err := filter.NewMatch(c.Key, c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	}
	if c.Range != nil {
		rf, err := filter.NewRangeFilter(c.Range.Gt, c.Range.Gte, c.Range.Lt, c.Range.Lte)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, rf)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	}
	return filter.Condition{},
		errors.New("filter condition must have either match or range")
}

func batchResultToDTO(r dombatch.Result) batchResultItem {
	item := batchResultItem{
		ID:     r.ID(),
		Status: string(r.Status()),
	}
	if r.Err() != nil {
		item.Error = &errorResponse{
			Code:    batchErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func batchErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return codeValidationFailed
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return codeVectorDimMismatch
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return codeEmbeddingQuotaExceeded
	case errors.Is(err, domain.ErrRateLimited):
		return codeRateLimited
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return codeEmbeddingProviderError
	case errors.Is(err, domain.ErrEmbeddingFailure):
		return codeEmbeddingFailure
	default:
		return codeInternalError
	}
}
