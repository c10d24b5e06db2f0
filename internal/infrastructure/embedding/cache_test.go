package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-api/internal/config"
)

type memoryCache struct {
	data     map[string][]float32
	failGet  bool
	failSet  bool
	getCalls int
	setCalls int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]float32{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.getCalls++
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	vec, ok := c.data[key]
	return vec, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, vec []float32) error {
	c.setCalls++
	if c.failSet {
		return errors.New("cache down")
	}
	c.data[key] = vec
	return nil
}

type countingProvider struct {
	*LocalProvider
	batchCalls int
	batchTexts []string
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.batchCalls++
	p.batchTexts = append(p.batchTexts, texts...)
	return p.LocalProvider.EmbedBatch(ctx, texts)
}

func newCountingProvider() *countingProvider {
	return &countingProvider{LocalProvider: NewLocalProvider(&config.EmbeddingConfig{Dimension: 32})}
}

func TestCachedProviderHitSkipsInner(t *testing.T) {
	inner := newCountingProvider()
	cache := newMemoryCache()
	p := NewCachedProvider(inner, cache)
	ctx := context.Background()

	first, err := p.Embed(ctx, "chunk one")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls)

	second, err := p.Embed(ctx, "chunk one")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls, "cached text must not hit the inner provider again")
	assert.Equal(t, first, second)
}

func TestCachedProviderPartialHitBatchesMisses(t *testing.T) {
	inner := newCountingProvider()
	cache := newMemoryCache()
	p := NewCachedProvider(inner, cache)
	ctx := context.Background()

	_, err := p.Embed(ctx, "already cached")
	require.NoError(t, err)
	inner.batchTexts = nil

	vecs, err := p.EmbedBatch(ctx, []string{"fresh a", "already cached", "fresh b"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 32)
	}

	// 仅未命中文本到达内层提供商
	assert.Equal(t, []string{"fresh a", "fresh b"}, inner.batchTexts)
}

func TestCachedProviderCacheFailureIsSoft(t *testing.T) {
	inner := newCountingProvider()
	cache := newMemoryCache()
	cache.failGet = true
	cache.failSet = true
	p := NewCachedProvider(inner, cache)

	vec, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
	assert.Equal(t, 1, inner.batchCalls)
}

func TestCachedProviderKeyIncludesIdentity(t *testing.T) {
	inner := newCountingProvider()
	p := NewCachedProvider(inner, newMemoryCache())

	k1 := p.cacheKey("same text")
	k2 := p.cacheKey("other text")
	assert.NotEqual(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestCachedProviderPassthroughMetadata(t *testing.T) {
	inner := newCountingProvider()
	p := NewCachedProvider(inner, newMemoryCache())

	assert.Equal(t, 32, p.Dimension())
	assert.Equal(t, "local/hashing-v1", p.Identity())
}
