// Package matchdex embeds the matching service in process: both
// population facades, their in-memory indexes and the query aggregator
// behind one Client, no server required.
//
//	client, _ := matchdex.New()
//	defer client.Close()
//
//	client.Resumes().Submit(ctx, matchdex.Record{
//	    ID:     "cand-1",
//	    Text:   "Senior Go engineer, distributed systems",
//	    Skills: []string{"go", "kubernetes"},
//	})
//	matches, _ := client.Jobs().Match(ctx, "backend engineer", nil)
package matchdex

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/repository/textindex"
	"github.com/matchdex/matchdex/internal/repository/vecindex"
	"github.com/matchdex/matchdex/internal/transport/hashemb"
	aggregatoruc "github.com/matchdex/matchdex/internal/usecase/aggregator"
	engineuc "github.com/matchdex/matchdex/internal/usecase/engine"
	facadeuc "github.com/matchdex/matchdex/internal/usecase/facade"
)

// Client is the embedded matchdex entry point.
type Client struct {
	resumes *facadeuc.Service
	jobs    *facadeuc.Service
	agg     *aggregatoruc.Service
	texts   []*textindex.Index
}

// New creates an embedded Client with fresh in-memory indexes for both
// populations. State lives and dies with the process.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions: domain.DefaultVectorConfig().Dimensions,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	domEmb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	docEmb := instructed(domEmb, cfg.docInstruction)
	queryEmb := instructed(domEmb, cfg.queryInstruction)

	resumes, resumeTexts, err := buildFacade(domain.PopulationResumes, cfg, docEmb, queryEmb)
	if err != nil {
		return nil, err
	}
	jobs, jobTexts, err := buildFacade(domain.PopulationJobs, cfg, docEmb, queryEmb)
	if err != nil {
		resumeTexts.Close()
		return nil, err
	}

	return &Client{
		resumes: resumes,
		jobs:    jobs,
		agg:     aggregatoruc.New(resumes, jobs, cfg.sourceTimeout, cfg.logger),
		texts:   []*textindex.Index{resumeTexts, jobTexts},
	}, nil
}

func buildEmbedder(cfg *clientConfig) (domain.Embedder, error) {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}, nil
	}
	e, err := hashemb.NewEmbedder(cfg.dimensions)
	if err != nil {
		return nil, fmt.Errorf("matchdex: create embedder: %w", err)
	}
	return e, nil
}

// instructed wraps the embedder with an instruction prefix. An empty
// instruction keeps the embedder as is, so identical document and query
// texts embed identically.
func instructed(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}

func buildFacade(
	pop domain.Population, cfg *clientConfig, docEmb, queryEmb domain.Embedder,
) (*facadeuc.Service, *textindex.Index, error) {
	vectors, err := vecindex.New(pop, cfg.dimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("matchdex: %s vector index: %w", pop, err)
	}
	texts, err := textindex.New(pop)
	if err != nil {
		return nil, nil, fmt.Errorf("matchdex: %s keyword index: %w", pop, err)
	}
	eng, err := engineuc.New(pop, vectors, texts, docEmb, queryEmb, cfg.logger)
	if err != nil {
		texts.Close()
		return nil, nil, fmt.Errorf("matchdex: %s engine: %w", pop, err)
	}
	return facadeuc.New(eng, cfg.logger), texts, nil
}

// Close releases the keyword indexes.
func (c *Client) Close() {
	for _, t := range c.texts {
		if t != nil {
			t.Close()
		}
	}
}

// Resumes returns the resume population facade.
func (c *Client) Resumes() *Records {
	return &Records{svc: c.resumes}
}

// Jobs returns the job population facade.
func (c *Client) Jobs() *Records {
	return &Records{svc: c.jobs}
}
