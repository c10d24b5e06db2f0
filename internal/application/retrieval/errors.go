package retrieval

import "errors"

var (
	// ErrVectorDisabled 表示向量检索/索引能力未配置（Milvus 或 Embedder 不可用）。
	ErrVectorDisabled = errors.New("vector retrieval is disabled")

	// ErrEmbedderUnavailable 表示 embedding 提供商不可恢复地失败。
	ErrEmbedderUnavailable = errors.New("embedding provider unavailable")

	// ErrEmbeddingTransient 表示可重试的 embedding 瞬时失败（限流、超时、5xx）。
	ErrEmbeddingTransient = errors.New("transient embedding failure")

	// ErrNoSearchableContent 表示提取后的文本无可索引内容。
	ErrNoSearchableContent = errors.New("no searchable content")
)

// IsTransient 判断错误是否为可重试的瞬时失败。
func IsTransient(err error) bool {
	return errors.Is(err, ErrEmbeddingTransient)
}
