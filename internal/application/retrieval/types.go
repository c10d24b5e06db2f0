package retrieval

import (
	"context"
	"time"
)

// ChunkType 标识分块的生成方式。
type ChunkType string

const (
	// ChunkTypeParagraph 由段落贪心合并产生
	ChunkTypeParagraph ChunkType = "paragraph"
	// ChunkTypeSentence 由超长段落按句子细分产生
	ChunkTypeSentence ChunkType = "sentence"
	// ChunkTypeOverflow 由超长句子按词强制切分产生
	ChunkTypeOverflow ChunkType = "overflow"
)

// Chunk 文档内容分块。
type Chunk struct {
	Text  string
	Index int
	Total int
	Type  ChunkType
}

// DocumentMeta 索引时携带的文档元信息。
type DocumentMeta struct {
	ID          int64
	Filename    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// IndexResult 单文档索引结果。文件名点位与内容点位独立写入，
// 任一阶段失败不回滚另一阶段。
type IndexResult struct {
	FilenameIndexed bool
	ChunksIndexed   int
	Err             error
}

// Success 表示至少有一个点位成功写入索引。
func (r IndexResult) Success() bool {
	return r.FilenameIndexed || r.ChunksIndexed > 0
}

// SearchInput 检索输入。
type SearchInput struct {
	Query       string
	Limit       int
	Rerank      bool
	NumVariants int
}

// SearchMode 检索结果模式。
type SearchMode string

const (
	// SearchModeOK 正常返回结果
	SearchModeOK SearchMode = "ok"
	// SearchModeNoResults 管线健康但无命中
	SearchModeNoResults SearchMode = "no_results"
	// SearchModeDegraded 部分能力不可用（如 embedding 或向量库故障）
	SearchModeDegraded SearchMode = "degraded"
)

// RankedBy 标识命中最终排序所依据的分数来源。
type RankedBy string

const (
	RankedByVector RankedBy = "vector"
	RankedByFusion RankedBy = "fusion"
	RankedByRerank RankedBy = "rerank"
)

// SearchHit 单条检索命中。三类分数字段彼此独立：
// VectorScore 是向量召回相似度，FusedScore 是 RRF 融合分，
// RerankScore 仅在交叉编码器重排生效时存在。
type SearchHit struct {
	DocumentID  int64
	Filename    string
	Chunk       string
	ChunkIndex  int
	TotalChunks int
	ChunkType   ChunkType
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time

	// Collection 命中来源集合（filename / content）
	Collection string
	// NameMatch 为真表示文件名点位与内容点位同时命中该文档
	NameMatch bool

	VectorScore float64
	FusedScore  float64
	RerankScore *float64
	RankedBy    RankedBy
}

// ActiveScore 返回当前排序所依据的分数。
func (h *SearchHit) ActiveScore() float64 {
	switch h.RankedBy {
	case RankedByRerank:
		if h.RerankScore != nil {
			return *h.RerankScore
		}
		return h.FusedScore
	case RankedByFusion:
		return h.FusedScore
	default:
		return h.VectorScore
	}
}

// SearchOutput 检索输出。
type SearchOutput struct {
	Hits []SearchHit
	Mode SearchMode

	// QueryVariants 实际参与检索的查询变体（含原始查询）
	QueryVariants []string
	// DisabledReason 降级原因，仅 Mode 为 degraded 时非空
	DisabledReason string
	// Reranked 为真表示交叉编码器重排已生效
	Reranked bool
}

// EmbeddingProvider 定义应用层对文本向量化的最小依赖（port）。
// 由基础设施层提供具体实现（OpenAI / 远程服务 / 本地模型）。
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	// Identity 返回提供商与模型的唯一标识，用于缓存键
	Identity() string
}

// VectorPoint 写入向量索引的点位。
type VectorPoint struct {
	ID      int64
	Vector  []float32
	Payload PointPayload
}

// PointPayload 点位携带的载荷字段。
type PointPayload struct {
	DocumentID  int64
	Filename    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
	Chunk       string
	ChunkIndex  int
	TotalChunks int
	ChunkType   string
}

// VectorHit 向量召回命中。
type VectorHit struct {
	ID      int64
	Score   float64
	Payload PointPayload
}

// VectorIndex 定义应用层对向量存储/检索的最小依赖（port）。
// collection 传逻辑名（filename / content），实现层负责映射到实际集合。
type VectorIndex interface {
	EnsureCollection(ctx context.Context, collection string, dimension int) error
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]VectorHit, error)
	DeleteByDocument(ctx context.Context, collection string, documentID int64) error
}

// QueryExpander 将原始查询改写为若干语义变体。
type QueryExpander interface {
	Expand(ctx context.Context, query string, n int) ([]string, error)
}

// Reranker 交叉编码器重排，对 query/text 逐对打分。
type Reranker interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}
