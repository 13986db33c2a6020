// Package textindex is the in-memory keyword index for one population,
// backed by a mem-only bleve index with BM25 ranking.
package textindex

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/record"
)

// Index ranks records of one population by keyword relevance over their
// raw text and skill tokens. bleve indexes are safe for concurrent use.
type Index struct {
	population domain.Population
	index      bleve.Index
}

type textDocument struct {
	RawText string `json:"raw_text"`
	Skills  string `json:"skills"`
}

// New creates a mem-only keyword index for the population.
func New(population domain.Population) (*Index, error) {
	if _, err := domain.ParsePopulation(string(population)); err != nil {
		return nil, err
	}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{population: population, index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("raw_text", textFieldMapping)
	docMapping.AddFieldMappingsAt("skills", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Population returns the entity class this index serves.
func (ix *Index) Population() domain.Population { return ix.population }

// Upsert indexes the record's text and skills under its id, replacing
// any previous version.
func (ix *Index) Upsert(rec record.Record) error {
	if rec.ID() == "" {
		return fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}
	doc := textDocument{
		RawText: rec.RawText(),
		Skills:  strings.Join(rec.Skills(), " "),
	}
	if err := ix.index.Index(rec.ID(), doc); err != nil {
		return fmt.Errorf("index %s: %w", rec.ID(), err)
	}
	return nil
}

// Remove deletes the entry for id; absent ids are a no-op.
func (ix *Index) Remove(id string) error {
	if err := ix.index.Delete(id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Search returns up to k ids ranked by BM25 relevance to the query
// text. Scores are squashed into (0, 1) with s/(1+s), so they are
// comparable against a minimum-score cutoff.
func (ix *Index) Search(queryText string, k int) ([]match.Hit, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}

	q := bleve.NewMatchQuery(queryText)
	req := bleve.NewSearchRequest(q)
	req.Size = k

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]match.Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, match.Hit{ID: hit.ID, Score: hit.Score / (1 + hit.Score)})
	}
	return hits, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() (uint64, error) {
	n, err := ix.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return n, nil
}

// Close releases the underlying bleve index.
func (ix *Index) Close() error {
	return ix.index.Close()
}
