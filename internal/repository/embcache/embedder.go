package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matchdex/matchdex/internal/db"
	"github.com/matchdex/matchdex/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// DefaultLocalSize is the in-process LRU capacity when none is configured.
const DefaultLocalSize = 4096

// store is the consumer interface for the persistent cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type cacheEntry struct {
	version string
	vector  []float32
}

// CachedEmbedder caches embeddings in two tiers: an in-process LRU and an
// optional key-value store. Keys are content hashes; each entry carries the
// embedder version that produced it, and entries from another version are
// treated as misses and overwritten. Concurrent misses for the same text
// collapse into one provider call.
type CachedEmbedder struct {
	inner      domain.Embedder
	local      *lru.Cache[string, cacheEntry]
	store      store // nil disables the persistent tier
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	localSize int,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*CachedEmbedder, error) {
	if localSize <= 0 {
		localSize = DefaultLocalSize
	}
	local, err := lru.New[string, cacheEntry](localSize)
	if err != nil {
		return nil, fmt.Errorf("create local cache: %w", err)
	}
	return &CachedEmbedder{
		inner:      inner,
		local:      local,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}, nil
}

// Version reports the inner model version.
func (c *CachedEmbedder) Version() string { return c.inner.Version() }

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.incCache("hit")
		domain.UsageFromContext(ctx).AddCacheHit()
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	var mine bool
	v, err, _ := c.group.Do(key, func() (any, error) {
		mine = true
		result, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text: %w", err)
		}
		c.put(ctx, key, result.Embedding)
		return result, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	result := v.(domain.EmbeddingResult)
	if !mine {
		// Collapsed onto another caller's in-flight request; that caller
		// already paid the tokens.
		domain.UsageFromContext(ctx).AddCacheHit()
		return domain.EmbeddingResult{Embedding: result.Embedding}, nil
	}
	return result, nil
}

// BatchEmbed serves what it can from the cache and sends only the misses
// to the inner embedder, preserving input order in the result.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := c.lookup(ctx, c.cacheKey(text)); ok {
			c.incCache("hit")
			domain.UsageFromContext(ctx).AddCacheHit()
			embeddings[i] = vec
			continue
		}
		c.incCache("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	missRes, err := c.batchInner(ctx, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(missRes.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"batch embed: got %d embeddings for %d texts", len(missRes.Embeddings), len(missTexts))
	}

	for j, i := range missIdx {
		embeddings[i] = missRes.Embeddings[j]
		c.put(ctx, c.cacheKey(missTexts[j]), missRes.Embeddings[j])
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: missRes.PromptTokens,
		TotalTokens:  missRes.TotalTokens,
	}, nil
}

func (c *CachedEmbedder) batchInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch embed: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, c.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch fallback: %w", err)
	}
	return res, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

// lookup checks the local tier, then the persistent tier. A hit from the
// persistent tier is promoted into the local one. Entries whose version
// does not match the current embedder are stale and reported as misses.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	want := c.inner.Version()

	if e, ok := c.local.Get(key); ok {
		if e.version == want {
			return e.vector, true
		}
		c.local.Remove(key)
	}

	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	version, vec, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if version != want {
		return nil, false
	}

	c.local.Add(key, cacheEntry{version: version, vector: vec})
	return vec, true
}

func (c *CachedEmbedder) put(ctx context.Context, key string, vec []float32) {
	version := c.inner.Version()
	c.local.Add(key, cacheEntry{version: version, vector: vec})

	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, encodeEntry(version, vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// encodeEntry frames the embedder version before the vector bytes:
// uint16 version length, version, then little-endian float32s.
func encodeEntry(version string, v []float32) []byte {
	buf := make([]byte, 2+len(version)+len(v)*4)
	binary.LittleEndian.PutUint16(buf, uint16(len(version)))
	copy(buf[2:], version)
	off := 2 + len(version)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEntry(data []byte) (string, []float32, error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("invalid embedding cache data: len=%d", len(data))
	}
	vlen := int(binary.LittleEndian.Uint16(data))
	if len(data) < 2+vlen {
		return "", nil, fmt.Errorf("invalid embedding cache data: version length %d exceeds payload", vlen)
	}
	version := string(data[2 : 2+vlen])
	rest := data[2+vlen:]
	if len(rest)%4 != 0 {
		return "", nil, fmt.Errorf("invalid embedding cache data: vector len=%d (not multiple of 4)", len(rest))
	}
	vec := make([]float32, len(rest)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[i*4:]))
	}
	return version, vec, nil
}
