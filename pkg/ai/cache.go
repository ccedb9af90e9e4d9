package ai

import (
	"context"
	"fmt"
	"sync"
)

// CachedEmbedder wraps an Embedder and memoizes vectors per exact text.
// The Embedder contract allows this: identical text through the same
// instance yields an acceptable cached vector. The cache is bounded; when
// full, new texts are embedded but not retained.
type CachedEmbedder struct {
	inner    Embedder
	capacity int

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewCachedEmbedder wraps inner with a cache of at most capacity entries
// (default 4096 for a non-positive value).
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 4096
	}
	return &CachedEmbedder{
		inner:    inner,
		capacity: capacity,
		cache:    make(map[string][]float32),
	}
}

// Dimensions implements the Embedder contract.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Embed returns cached vectors where available and embeds only the
// missing texts, preserving input order.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.RLock()
	for i, text := range texts {
		if vec, ok := c.cache[text]; ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, &EmbeddingError{Reason: fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(missing))}
	}

	dims := c.inner.Dimensions()
	c.mu.Lock()
	for i, vec := range vecs {
		if dims > 0 && len(vec) != dims {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: got %d, embedder declares %d", ErrDimensionMismatch, len(vec), dims)
		}
		out[missingIdx[i]] = vec
		if len(c.cache) < c.capacity {
			c.cache[missing[i]] = vec
		}
	}
	c.mu.Unlock()

	return out, nil
}

// Len returns the number of cached texts.
func (c *CachedEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
