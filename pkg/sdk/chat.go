package matchdex

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
)

// RequesterContext tells the aggregator who is asking. The subject text
// is matched against the opposite population when the intent calls for it.
type RequesterContext struct {
	Role          Role               `json:"role,omitempty"`
	SubjectText   string             `json:"subject_text,omitempty"`
	OwnerID       string             `json:"owner_id,omitempty"`
	TopK          int                `json:"top_k,omitempty"`
	MinScore      float64            `json:"min_score,omitempty"`
	FusionWeights map[string]float64 `json:"fusion_weights,omitempty"`
}

// ChatSource is the outcome of one aggregator source. Match sources carry
// Matches, analytics sources carry Summary; the other fields are shared.
type ChatSource struct {
	Source          string    `json:"source"`
	Population      string    `json:"population"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	Error           string    `json:"error"`
	Matches         []Match   `json:"matches"`
	Summary         *Insights `json:"summary"`
	EmbedderVersion string    `json:"embedder_version"`
	ElapsedMs       int64     `json:"elapsed_ms"`
}

// ChatAnswer is the aggregated response to one natural-language query.
type ChatAnswer struct {
	Intent         string
	Degraded       bool
	MissingSources []string
	Sources        []ChatSource
	Fused          []Match
	Suggestions    []string

	EmbeddingTokens int
}

type chatEnvelope struct {
	Intent         string           `json:"intent"`
	Degraded       bool             `json:"degraded"`
	MissingSources []string         `json:"missing_sources"`
	Sources        []map[string]any `json:"sources"`
	Fused          []Match          `json:"fused"`
	Suggestions    []string         `json:"suggestions"`
}

// Chat runs one natural-language query across the populations and returns
// the per-source results.
func (c *Client) Chat(ctx context.Context, query string, rc *RequesterContext) (ans ChatAnswer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chat", start, err) }()

	payload := struct {
		Query            string            `json:"query"`
		RequesterContext *RequesterContext `json:"requester_context,omitempty"`
	}{Query: query, RequesterContext: rc}

	var env chatEnvelope
	h, err := c.do(ctx, http.MethodPost, apiPrefix+"/chat", payload, &env)
	if err != nil {
		return ChatAnswer{}, err
	}

	sources, err := decodeSources(env.Sources)
	if err != nil {
		return ChatAnswer{}, err
	}

	return ChatAnswer{
		Intent:          env.Intent,
		Degraded:        env.Degraded,
		MissingSources:  env.MissingSources,
		Sources:         sources,
		Fused:           env.Fused,
		Suggestions:     env.Suggestions,
		EmbeddingTokens: embeddingTokens(h),
	}, nil
}

// decodeSources maps the loosely typed source payloads into typed views.
func decodeSources(raw []map[string]any) ([]ChatSource, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]ChatSource, len(raw))
	for i, m := range raw {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:  &out[i],
			TagName: "json",
		})
		if err != nil {
			return nil, fmt.Errorf("matchdex: build source decoder: %w", err)
		}
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("matchdex: decode source %d: %w", i, err)
		}
	}
	return out, nil
}
