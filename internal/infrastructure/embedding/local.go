package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"doc-qa-api/internal/config"
)

// LocalProvider 进程内特征哈希向量化实现。
// 分词后将词项哈希到固定维度的桶上累加词频，最后做 L2 归一化。
// 无需外部服务，适合开发环境与离线测试；语义质量不及模型 embedding。
type LocalProvider struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewLocalProvider 创建本地 embedding 提供商。
func NewLocalProvider(cfg *config.EmbeddingConfig) *LocalProvider {
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 384
	}
	return &LocalProvider{
		dimension:    dim,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// Embed 向量化单条文本。
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

// EmbedBatch 批量向量化。
func (p *LocalProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.embed(t)
	}
	return out, nil
}

// Dimension 返回向量维度。
func (p *LocalProvider) Dimension() int { return p.dimension }

// Identity 返回提供商标识。
func (p *LocalProvider) Identity() string { return "local/hashing-v1" }

func (p *LocalProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := p.tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		idx := int(sum) % p.dimension
		if idx < 0 {
			idx += p.dimension
		}
		// 用哈希最高位决定符号，抵消碰撞带来的系统性偏置
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (p *LocalProvider) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := p.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := p.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
