package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"medsearch/internal/cache"
	"medsearch/internal/logger"
	"medsearch/internal/metrics"
)

// RemoteCache is the shared second-level cache (Redis)
type RemoteCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder memoizes embeddings by exact text: process-local LRU first,
// then the optional remote cache, then the wrapped embedder. Cache errors are
// logged and bypassed.
type CachedEmbedder struct {
	next   Embedder
	local  *lru.Cache[string, []float32]
	remote RemoteCache
	ttl    time.Duration
	model  string
	log    logger.Logger
}

// NewCachedEmbedder wraps next. remote may be nil.
func NewCachedEmbedder(next Embedder, size int, remote RemoteCache, ttl time.Duration, model string, log logger.Logger) *CachedEmbedder {
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, []float32](size)
	if err != nil {
		local, _ = lru.New[string, []float32](1024)
	}
	return &CachedEmbedder{
		next:   next,
		local:  local,
		remote: remote,
		ttl:    ttl,
		model:  model,
		log:    log.With(map[string]interface{}{"component": "embedding_cache"}),
	}
}

// Embed implements Embedder
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if vec, ok := c.local.Get(key); ok {
		metrics.EmbeddingCache.WithLabelValues("lru", "hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCache.WithLabelValues("lru", "miss").Inc()

	if c.remote != nil {
		if vec, ok := c.getRemote(ctx, key); ok {
			c.local.Add(key, vec)
			return vec, nil
		}
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.local.Add(key, vec)
	if c.remote != nil {
		c.setRemote(ctx, key, vec)
	}
	return vec, nil
}

// Len returns the number of locally cached vectors
func (c *CachedEmbedder) Len() int {
	return c.local.Len()
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(text))
	return "embedding:" + c.model + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getRemote(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.remote.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		metrics.EmbeddingCache.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.EmbeddingCache.WithLabelValues("redis", "error").Inc()
		c.log.Warn("remote cache read failed", map[string]interface{}{"error": err})
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) == 0 {
		metrics.EmbeddingCache.WithLabelValues("redis", "error").Inc()
		c.log.Warn("discarding corrupt cached embedding", map[string]interface{}{"key": key})
		return nil, false
	}
	metrics.EmbeddingCache.WithLabelValues("redis", "hit").Inc()
	return vec, true
}

func (c *CachedEmbedder) setRemote(ctx context.Context, key string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.remote.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn("remote cache write failed", map[string]interface{}{"error": err})
	}
}
