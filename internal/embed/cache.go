package embed

import (
	"github.com/dgraph-io/ristretto"
)

// CachedEmbedder memoizes embeddings by text. Compaction re-embeds the same
// candidate phrasings across its exact/approximate/contradiction passes, so
// a small cache saves most duplicate API calls within a run.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder wraps an embedder with an in-process cache.
func NewCachedEmbedder(inner Embedder) (*CachedEmbedder, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     4 << 20, // ~4MB of vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachedEmbedder) Embed(text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

func (c *CachedEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			if vec, ok := v.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.inner.EmbedBatch(missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range fetched {
		i := missingIdx[j]
		out[i] = vec
		c.cache.Set(texts[i], vec, int64(len(vec)*4))
	}
	return out, nil
}

func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}
