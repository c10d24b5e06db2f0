package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	einoembedding "github.com/cloudwego/eino/components/embedding"

	"doc-qa-api/internal/config"
	"doc-qa-api/pkg/metrics"
)

// OpenAIProvider 基于 Eino OpenAI 适配器的 embedding 提供商。
type OpenAIProvider struct {
	embedder      einoembedding.Embedder
	model         string
	dimension     int
	maxInputRunes int
}

// NewOpenAIProvider 创建 OpenAI embedding 提供商。
func NewOpenAIProvider(ctx context.Context, cfg *config.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api_key is required for openai provider")
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 1536
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: &dim,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	return &OpenAIProvider{
		embedder:      embedder,
		model:         cfg.Model,
		dimension:     dim,
		maxInputRunes: cfg.MaxInputRunes,
	}, nil
}

// Embed 向量化单条文本。
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化。超长输入按 rune 截断。
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = capRunes(t, p.maxInputRunes)
	}

	v64, err := p.embedder.EmbedStrings(ctx, inputs)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "error").Inc()
		return nil, classifyError(err)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues("openai", "ok").Inc()

	if len(v64) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(v64), len(texts))
	}
	out := make([][]float32, len(v64))
	for i, vec := range v64 {
		f32 := make([]float32, len(vec))
		for j, x := range vec {
			f32[j] = float32(x)
		}
		out[i] = f32
	}
	return out, nil
}

// Dimension 返回向量维度。
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Identity 返回提供商与模型的唯一标识。
func (p *OpenAIProvider) Identity() string { return "openai/" + p.model }

func capRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
