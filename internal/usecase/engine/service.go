// Package engine implements per-population matching: ingestion, retraction
// and ranked retrieval over the population's own in-memory indexes.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/domain"
	"github.com/matchdex/matchdex/internal/domain/batch"
	"github.com/matchdex/matchdex/internal/domain/match"
	"github.com/matchdex/matchdex/internal/domain/record"
	"github.com/matchdex/matchdex/internal/domain/search/filter"
	"github.com/matchdex/matchdex/internal/domain/search/mode"
	"github.com/matchdex/matchdex/internal/domain/search/request"
)

// snippetLength bounds the display excerpt carried by each match.
const snippetLength = 200

// keywordOverFetch widens keyword retrieval when results are post-filtered,
// so structured filters do not starve the final list.
const keywordOverFetch = 4

// Service is the matching engine for a single population. Each instance
// exclusively owns its vector index, keyword index and embedding chain;
// the two populations of a deployment never share mutable state.
type Service struct {
	population    domain.Population
	vectors       VectorIndex
	texts         TextIndex
	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
	logger        *zap.Logger
}

// New creates an engine for one population. The document and query
// embedders may differ only by instruction prefix; both must produce
// vectors in the same space.
func New(
	population domain.Population,
	vectors VectorIndex, texts TextIndex,
	docEmbedder, queryEmbedder domain.Embedder, logger *zap.Logger,
) (*Service, error) {
	if _, err := domain.ParsePopulation(string(population)); err != nil {
		return nil, err
	}
	return &Service{
		population:    population,
		vectors:       vectors,
		texts:         texts,
		docEmbedder:   docEmbedder,
		queryEmbedder: queryEmbedder,
		logger:        logger,
	}, nil
}

// Population returns the entity class this engine serves.
func (s *Service) Population() domain.Population { return s.population }

// Size returns the number of indexed records.
func (s *Service) Size() int { return s.vectors.Len() }

// EmbedderVersion identifies the vector space all indexed records share.
func (s *Service) EmbedderVersion() string { return s.queryEmbedder.Version() }

// Match ranks indexed records against the query text. Read-only: a match
// call never mutates records or indexes.
func (s *Service) Match(ctx context.Context, req *request.Request) ([]match.Match, error) {
	filters, err := effectiveFilters(req)
	if err != nil {
		return nil, err
	}

	var matches []match.Match

	switch req.Mode() {
	case mode.Semantic:
		matches, err = s.matchSemantic(ctx, req, filters)
	case mode.Keyword:
		matches, err = s.matchKeyword(req, filters)
	case mode.Hybrid:
		matches, err = s.matchHybrid(ctx, req, filters)
	default:
		return nil, fmt.Errorf("%w: unsupported match mode %q", domain.ErrInvalidInput, req.Mode())
	}
	if err != nil {
		return nil, err
	}

	// Post-filter: min_score
	if req.MinScore() > 0 {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Score() >= req.MinScore() {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	if len(matches) > req.K() {
		matches = matches[:req.K()]
	}

	match.Order(matches)
	return matches, nil
}

// effectiveFilters folds the owner exclusion into the structured filter,
// so every mode honors it in one place.
func effectiveFilters(req *request.Request) (filter.Expression, error) {
	filters := req.Filters()
	owner := req.ExcludeOwner()
	if owner == "" {
		return filters, nil
	}
	cond, err := filter.NewMatch(domain.FieldOwner, owner)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("exclude owner: %w", err)
	}
	filters, err = filters.WithMustNot(cond)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("exclude owner: %w", err)
	}
	return filters, nil
}

// matchSemantic embeds the query and ranks by cosine similarity.
func (s *Service) matchSemantic(
	ctx context.Context, req *request.Request, filters filter.Expression,
) ([]match.Match, error) {
	embResult, err := s.queryEmbedder.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingFailure, err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	scored, err := s.vectors.TopK(embResult.Embedding, req.K(), filters)
	if err != nil {
		return nil, fmt.Errorf("rank by similarity: %w", err)
	}

	matches := make([]match.Match, 0, len(scored))
	for _, sc := range scored {
		matches = append(matches, buildMatch(sc.Record, sc.Score))
	}
	return matches, nil
}

// matchKeyword ranks by BM25 over raw text and skill tokens. The keyword
// index stores no records, so hits are resolved against the vector index
// and structured filters are applied record-side.
func (s *Service) matchKeyword(req *request.Request, filters filter.Expression) ([]match.Match, error) {
	fetchK := req.K()
	if !filters.IsEmpty() {
		fetchK *= keywordOverFetch
	}

	hits, err := s.texts.Search(req.Query(), fetchK)
	if err != nil {
		return nil, fmt.Errorf("rank by keywords: %w", err)
	}

	matches := make([]match.Match, 0, min(len(hits), req.K()))
	for _, hit := range hits {
		rec, ok := s.vectors.Get(hit.ID)
		if !ok {
			// Keyword updates are best effort, so the text index may
			// briefly hold an id the vector index already dropped.
			continue
		}
		if !filters.IsEmpty() && !filters.Matches(rec.Skills(), rec.Numerics(), rec.Tags()) {
			continue
		}
		matches = append(matches, buildMatch(rec, hit.Score))
		if len(matches) == req.K() {
			break
		}
	}
	return matches, nil
}

// matchHybrid runs the semantic and keyword rankings, then fuses via RRF.
func (s *Service) matchHybrid(
	ctx context.Context, req *request.Request, filters filter.Expression,
) ([]match.Match, error) {
	semantic, err := s.matchSemantic(ctx, req, filters)
	if err != nil {
		return nil, err
	}

	keyword, err := s.matchKeyword(req, filters)
	if err != nil {
		return nil, err
	}

	return fuseRRF(semantic, keyword, req.K()), nil
}

// Ingest embeds the record text and indexes the record. The embedding
// happens first: when it fails nothing is written, so the indexes never
// hold a record without a vector.
func (s *Service) Ingest(ctx context.Context, rec record.Record) error {
	embResult, err := s.docEmbedder.Embed(ctx, rec.RawText())
	if err != nil {
		return fmt.Errorf("vectorize record %s: %w: %w", rec.ID(), domain.ErrEmbeddingFailure, err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	if err := s.vectors.Upsert(rec, embResult.Embedding); err != nil {
		return fmt.Errorf("index record %s: %w", rec.ID(), err)
	}

	// Keyword indexing is best effort: matching stays available in
	// semantic mode even when the text index rejects an update.
	if err := s.texts.Upsert(rec); err != nil {
		s.logger.Warn("Keyword index update failed",
			zap.String("population", string(s.population)),
			zap.String("id", rec.ID()),
			zap.Error(err),
		)
	}

	return nil
}

// IngestBatch embeds all records in one provider call and indexes them
// individually: one bad record fails its own item, never the batch.
func (s *Service) IngestBatch(ctx context.Context, recs []record.Record) []batch.Result {
	if len(recs) == 0 {
		return nil
	}

	texts := make([]string, len(recs))
	for i, rec := range recs {
		texts[i] = rec.RawText()
	}

	embRes, err := s.batchEmbed(ctx, texts)
	if err != nil {
		// Пакетный вызов не удался целиком — пробуем по одному, чтобы
		// один плохой текст не топил остальные.
		s.logger.Warn("Batch embedding failed, falling back to per-record ingestion",
			zap.String("population", string(s.population)),
			zap.Int("batch_size", len(recs)),
			zap.Error(err),
		)
		return s.ingestEach(ctx, recs)
	}

	if len(embRes.Embeddings) != len(recs) {
		err := fmt.Errorf("embedding count mismatch: got %d for %d records: %w",
			len(embRes.Embeddings), len(recs), domain.ErrEmbeddingProviderError)
		results := make([]batch.Result, len(recs))
		for i, rec := range recs {
			results[i] = batch.NewError(rec.ID(), err)
		}
		return results
	}

	domain.UsageFromContext(ctx).AddTokens(embRes.TotalTokens)

	results := make([]batch.Result, len(recs))
	for i, rec := range recs {
		if err := s.vectors.Upsert(rec, embRes.Embeddings[i]); err != nil {
			results[i] = batch.NewError(rec.ID(), fmt.Errorf("index record: %w", err))
			continue
		}
		if err := s.texts.Upsert(rec); err != nil {
			s.logger.Warn("Keyword index update failed",
				zap.String("population", string(s.population)),
				zap.String("id", rec.ID()),
				zap.Error(err),
			)
		}
		results[i] = batch.NewOK(rec.ID())
	}
	return results
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.docEmbedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.docEmbedder, texts)
}

func (s *Service) ingestEach(ctx context.Context, recs []record.Record) []batch.Result {
	results := make([]batch.Result, len(recs))
	for i, rec := range recs {
		if err := s.Ingest(ctx, rec); err != nil {
			results[i] = batch.NewError(rec.ID(), err)
			// Квота кончилась — остальные даже не пробуем.
			if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) || errors.Is(err, domain.ErrRateLimited) {
				for j := i + 1; j < len(recs); j++ {
					results[j] = batch.NewError(recs[j].ID(), err)
				}
				return results
			}
			continue
		}
		results[i] = batch.NewOK(rec.ID())
	}
	return results
}

// Retract removes the record from both indexes. Absent ids are a no-op.
// Cached embeddings stay: they are addressed by content, not by record,
// and may serve a future identical text.
func (s *Service) Retract(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}

	s.vectors.Remove(id)

	if err := s.texts.Remove(id); err != nil {
		s.logger.Warn("Keyword index removal failed",
			zap.String("population", string(s.population)),
			zap.String("id", id),
			zap.Error(err),
		)
	}

	return nil
}

// Get returns the indexed record for id.
func (s *Service) Get(_ context.Context, id string) (record.Record, error) {
	rec, ok := s.vectors.Get(id)
	if !ok {
		return record.Record{}, fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	}
	return rec, nil
}

// Snapshot returns all indexed records, for listing and analytics.
func (s *Service) Snapshot(_ context.Context) []record.Record {
	return s.vectors.Snapshot()
}

func buildMatch(rec record.Record, score float64) match.Match {
	return match.New(rec.ID(), score, rec.Snippet(snippetLength), rec.Skills(), rec.Tags())
}
