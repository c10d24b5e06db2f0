package embedding

import (
	"context"
	"fmt"

	"doc-qa-api/internal/application/retrieval"
	"doc-qa-api/internal/config"
)

// NewProvider 按配置创建 embedding 提供商。
// provider 取值：openai / remote / local，cache 可为 nil。
func NewProvider(ctx context.Context, cfg *config.EmbeddingConfig, cache VectorCache) (retrieval.EmbeddingProvider, error) {
	var (
		provider retrieval.EmbeddingProvider
		err      error
	)
	switch cfg.Provider {
	case "openai":
		provider, err = NewOpenAIProvider(ctx, cfg)
	case "remote":
		provider, err = NewRemoteProvider(cfg)
	case "local", "":
		provider = NewLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled && cache != nil {
		return NewCachedProvider(provider, cache), nil
	}
	return provider, nil
}
