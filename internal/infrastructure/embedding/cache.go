package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"doc-qa-api/internal/application/retrieval"
	"doc-qa-api/pkg/logger"
	"doc-qa-api/pkg/metrics"
)

// VectorCache 向量缓存的最小依赖。
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CachedProvider 给任意 EmbeddingProvider 套一层缓存。
// 缓存故障只记日志，不影响向量化结果。
type CachedProvider struct {
	inner retrieval.EmbeddingProvider
	cache VectorCache
}

// NewCachedProvider 创建带缓存的 embedding 提供商。
func NewCachedProvider(inner retrieval.EmbeddingProvider, cache VectorCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

// Embed 向量化单条文本，优先读缓存。
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化，命中缓存的条目不再请求提供商。
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		vec, ok, err := p.cache.Get(ctx, p.cacheKey(text))
		if err != nil {
			logger.FromContext(ctx).Warn("embedding cache read failed", "error", err.Error())
		}
		if ok {
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			out[i] = vec
			continue
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := p.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = vectors[j]
		if err := p.cache.Set(ctx, p.cacheKey(missTexts[j]), vectors[j]); err != nil {
			logger.FromContext(ctx).Warn("embedding cache write failed", "error", err.Error())
		}
	}
	return out, nil
}

// Dimension 返回向量维度。
func (p *CachedProvider) Dimension() int { return p.inner.Dimension() }

// Identity 返回底层提供商标识。
func (p *CachedProvider) Identity() string { return p.inner.Identity() }

func (p *CachedProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(p.inner.Identity() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
