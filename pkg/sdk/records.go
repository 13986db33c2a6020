package matchdex

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// RecordService manages the records of a single population.
type RecordService struct {
	c    *Client
	name string
	base string
}

// Submit creates or replaces a record. When req.ID is empty, the server
// assigns one.
func (s *RecordService) Submit(ctx context.Context, req SubmitRequest) (rec Record, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".submit", start, err) }()

	_, err = s.c.do(ctx, http.MethodPost, s.base, req, &rec)
	return rec, err
}

// SubmitBatch submits up to 100 records in one call. Per-item failures do
// not fail the call: inspect the returned items.
func (s *RecordService) SubmitBatch(ctx context.Context, items []SubmitRequest) (res BatchSubmitResult, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".submit_batch", start, err) }()

	payload := struct {
		Items []SubmitRequest `json:"items"`
	}{Items: items}

	h, err := s.c.do(ctx, http.MethodPost, s.base+"/batch", payload, &res)
	if err != nil {
		return BatchSubmitResult{}, err
	}
	res.EmbeddingTokens = embeddingTokens(h)
	return res, nil
}

// Get retrieves a record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (rec Record, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".get", start, err) }()

	_, err = s.c.do(ctx, http.MethodGet, s.base+"/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

// List returns the population's records, optionally filtered by the
// owner tag.
func (s *RecordService) List(ctx context.Context, owner string) (list RecordList, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".list", start, err) }()

	path := s.base
	if owner != "" {
		path += "?owner=" + url.QueryEscape(owner)
	}
	_, err = s.c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// Remove deletes a record by ID. Removing an absent record is not an error.
func (s *RecordService) Remove(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".remove", start, err) }()

	_, err = s.c.do(ctx, http.MethodDelete, s.base+"/"+url.PathEscape(id), nil, nil)
	return err
}

// Match runs a ranked retrieval against this population.
func (s *RecordService) Match(ctx context.Context, req MatchRequest) (res MatchResult, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".match", start, err) }()

	h, err := s.c.do(ctx, http.MethodPost, s.base+"/match", req, &res)
	if err != nil {
		return MatchResult{}, err
	}
	res.EmbeddingTokens = embeddingTokens(h)
	return res, nil
}

// Insights returns the analytics summary for this population.
func (s *RecordService) Insights(ctx context.Context) (ins Insights, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe(s.name+".insights", start, err) }()

	_, err = s.c.do(ctx, http.MethodGet, s.base+"/insights", nil, &ins)
	return ins, err
}
