package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-api/internal/config"
)

func newTestLocalProvider(dim int) *LocalProvider {
	return NewLocalProvider(&config.EmbeddingConfig{Dimension: dim})
}

func TestLocalProviderDimension(t *testing.T) {
	p := newTestLocalProvider(128)
	assert.Equal(t, 128, p.Dimension())

	vec, err := p.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 128)

	// 非法维度回退默认值
	fallback := newTestLocalProvider(0)
	assert.Equal(t, 384, fallback.Dimension())
}

func TestLocalProviderDeterministic(t *testing.T) {
	p := newTestLocalProvider(64)

	a, err := p.Embed(context.Background(), "vector databases index embeddings")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "vector databases index embeddings")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestLocalProviderNormalized(t *testing.T) {
	p := newTestLocalProvider(64)

	vec, err := p.Embed(context.Background(), "chunking splits documents into overlapping windows")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestLocalProviderEmptyAndStopwordOnly(t *testing.T) {
	p := newTestLocalProvider(32)

	empty, err := p.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, empty, 32)
	for _, v := range empty {
		assert.Zero(t, v)
	}

	// 纯停用词文本同样产生零向量
	stop, err := p.Embed(context.Background(), "the and of in on")
	require.NoError(t, err)
	assert.Equal(t, empty, stop)
}

func TestLocalProviderSimilarTextsCloser(t *testing.T) {
	p := newTestLocalProvider(256)
	ctx := context.Background()

	query, err := p.Embed(ctx, "database index performance")
	require.NoError(t, err)
	related, err := p.Embed(ctx, "tuning database index performance for queries")
	require.NoError(t, err)
	unrelated, err := p.Embed(ctx, "grilled cheese sandwich recipe")
	require.NoError(t, err)

	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestLocalProviderEmbedBatch(t *testing.T) {
	p := newTestLocalProvider(64)

	vecs, err := p.EmbedBatch(context.Background(), []string{"first chunk", "second chunk", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 64)
	}
	assert.NotEqual(t, vecs[0], vecs[1])
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
