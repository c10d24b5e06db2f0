// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"doc-qa-api/internal/application/retrieval"
)

// SearchRequest 检索请求
type SearchRequest struct {
	Query       string `json:"query" binding:"required"`
	Limit       int    `json:"limit"`
	Rerank      bool   `json:"rerank"`
	NumVariants int    `json:"num_variants"`
}

// ToSearchInput 转换为检索输入
func (r *SearchRequest) ToSearchInput() retrieval.SearchInput {
	return retrieval.SearchInput{
		Query:       r.Query,
		Limit:       r.Limit,
		Rerank:      r.Rerank,
		NumVariants: r.NumVariants,
	}
}

// SearchHitResponse 单条检索命中响应
type SearchHitResponse struct {
	DocumentID  int64     `json:"document_id"`
	Filename    string    `json:"filename"`
	Chunk       string    `json:"chunk,omitempty"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	ChunkType   string    `json:"chunk_type,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	Collection  string    `json:"collection"`
	NameMatch   bool      `json:"name_match"`
	VectorScore float64   `json:"vector_score"`
	FusedScore  float64   `json:"fused_score"`
	RerankScore *float64  `json:"rerank_score,omitempty"`
	RankedBy    string    `json:"ranked_by"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Hits           []SearchHitResponse `json:"hits"`
	Mode           string              `json:"mode"`
	QueryVariants  []string            `json:"query_variants,omitempty"`
	DisabledReason string              `json:"disabled_reason,omitempty"`
	Reranked       bool                `json:"reranked"`
}

// ToSearchResponse 检索输出转响应
func ToSearchResponse(out *retrieval.SearchOutput) SearchResponse {
	hits := make([]SearchHitResponse, 0, len(out.Hits))
	for i := range out.Hits {
		h := out.Hits[i]
		hits = append(hits, SearchHitResponse{
			DocumentID:  h.DocumentID,
			Filename:    h.Filename,
			Chunk:       h.Chunk,
			ChunkIndex:  h.ChunkIndex,
			TotalChunks: h.TotalChunks,
			ChunkType:   string(h.ChunkType),
			ContentType: h.ContentType,
			SizeBytes:   h.SizeBytes,
			CreatedAt:   h.CreatedAt,
			Collection:  h.Collection,
			NameMatch:   h.NameMatch,
			VectorScore: h.VectorScore,
			FusedScore:  h.FusedScore,
			RerankScore: h.RerankScore,
			RankedBy:    string(h.RankedBy),
		})
	}
	return SearchResponse{
		Hits:           hits,
		Mode:           string(out.Mode),
		QueryVariants:  out.QueryVariants,
		DisabledReason: out.DisabledReason,
		Reranked:       out.Reranked,
	}
}

// ContextRequest 上下文构建请求
type ContextRequest struct {
	Query       string `json:"query" binding:"required"`
	Limit       int    `json:"limit"`
	Rerank      bool   `json:"rerank"`
	MaxHits     int    `json:"max_hits"`
	MaxRunes    int    `json:"max_runes_per_hit"`
	NumVariants int    `json:"num_variants"`
}

// ContextResponse 上下文构建响应
type ContextResponse struct {
	Context string `json:"context"`
	Mode    string `json:"mode"`
	Hits    int    `json:"hits"`
}
