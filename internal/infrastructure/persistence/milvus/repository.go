// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository 文档点位仓储
type Repository struct {
	client *Client
}

// NewRepository 创建文档点位仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchResult 检索结果
type SearchResult struct {
	Point DocumentPoint
	Score float32
}

// EnsureCollection 确保集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.createCollection(ctx, collection, dimension); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.createIndex(ctx, collection)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, collection)
}

func (r *Repository) createCollection(ctx context.Context, collection string, dimension int) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	schema := PointsSchema(r.client.CollectionName(collection), dimension)
	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *Repository) createIndex(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := r.client.milvus.CreateIndex(ctx, r.client.CollectionName(collection), "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Upsert 写入或覆盖文档点位
func (r *Repository) Upsert(ctx context.Context, collection string, dimension int, points []*DocumentPoint) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("count", len(points)),
		))
	defer span.End()

	if len(points) == 0 {
		return nil
	}

	ids := make([]int64, len(points))
	vectors := make([][]float32, len(points))
	docIDs := make([]int64, len(points))
	filenames := make([]string, len(points))
	contentTypes := make([]string, len(points))
	sizes := make([]int64, len(points))
	createdAts := make([]int64, len(points))
	chunks := make([]string, len(points))
	chunkIndexes := make([]int64, len(points))
	totalChunks := make([]int64, len(points))
	chunkTypes := make([]string, len(points))

	for i, p := range points {
		ids[i] = p.ID
		vectors[i] = p.Vector
		docIDs[i] = p.DocumentID
		filenames[i] = p.Filename
		contentTypes[i] = p.ContentType
		sizes[i] = p.SizeBytes
		createdAts[i] = p.CreatedAt
		chunks[i] = p.Chunk
		chunkIndexes[i] = p.ChunkIndex
		totalChunks[i] = p.TotalChunks
		chunkTypes[i] = p.ChunkType
	}

	_, err := r.client.milvus.Upsert(ctx, r.client.CollectionName(collection), "",
		entity.NewColumnInt64("id", ids),
		entity.NewColumnFloatVector("vector", dimension, vectors),
		entity.NewColumnInt64("document_id", docIDs),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnVarChar("content_type", contentTypes),
		entity.NewColumnInt64("size_bytes", sizes),
		entity.NewColumnInt64("created_at", createdAts),
		entity.NewColumnVarChar("chunk", chunks),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnInt64("total_chunks", totalChunks),
		entity.NewColumnVarChar("chunk_type", chunkTypes),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search 向量检索。COSINE 度量下返回的 Score 为相似度，越大越相近。
func (r *Repository) Search(ctx context.Context, collection string, vector []float32, limit int) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("limit", limit),
		))
	defer span.End()

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		r.client.CollectionName(collection),
		nil,
		"",
		[]string{"id", "document_id", "filename", "content_type", "size_bytes", "created_at", "chunk", "chunk_index", "total_chunks", "chunk_type"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var out []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{Score: result.Scores[i]}

			if col, ok := result.Fields.GetColumn("id").(*entity.ColumnInt64); ok {
				sr.Point.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("document_id").(*entity.ColumnInt64); ok {
				sr.Point.DocumentID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("filename").(*entity.ColumnVarChar); ok {
				sr.Point.Filename = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("content_type").(*entity.ColumnVarChar); ok {
				sr.Point.ContentType = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("size_bytes").(*entity.ColumnInt64); ok {
				sr.Point.SizeBytes = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("created_at").(*entity.ColumnInt64); ok {
				sr.Point.CreatedAt = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("chunk").(*entity.ColumnVarChar); ok {
				sr.Point.Chunk = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("chunk_index").(*entity.ColumnInt64); ok {
				sr.Point.ChunkIndex = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("total_chunks").(*entity.ColumnInt64); ok {
				sr.Point.TotalChunks = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("chunk_type").(*entity.ColumnVarChar); ok {
				sr.Point.ChunkType = col.Data()[i]
			}

			out = append(out, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// DeleteByDocument 删除指定文档的全部点位
func (r *Repository) DeleteByDocument(ctx context.Context, collection string, documentID int64) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteByDocument",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int64("document_id", documentID),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)
	exists, err := r.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}

	expr := fmt.Sprintf("document_id == %d", documentID)
	if err := r.client.milvus.Delete(ctx, collName, "", expr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}
