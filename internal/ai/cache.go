package ai

import (
	"container/list"
	"context"
	"sync"
)

// embeddingCache is an LRU cache for embeddings keyed by text.
type embeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

func newEmbeddingCache(capacity int) *embeddingCache {
	return &embeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *embeddingCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

func (c *embeddingCache) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// CachedEmbedder wraps an Embedder with an LRU cache so repeated questions
// and re-ingested chunks skip the embedding service.
type CachedEmbedder struct {
	inner Embedder
	cache *embeddingCache
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	if capacity < 1 {
		capacity = 1
	}
	return &CachedEmbedder{inner: inner, cache: newEmbeddingCache(capacity)}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.get(text); ok {
		return v, nil
	}
	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.set(text, v)
	return v, nil
}

// EmbedBatch serves cached texts locally and sends only the misses to the
// inner embedder, preserving input order in the result.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := e.cache.get(text); ok {
			results[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return results, nil
	}
	fresh, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range fresh {
		e.cache.set(missTexts[j], v)
		results[missIdx[j]] = v
	}
	return results, nil
}

func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}
