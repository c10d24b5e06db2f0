package milvus

import (
	"context"
	"time"

	"doc-qa-api/internal/application/retrieval"
)

// RetrievalVectorIndex Repository 到应用层 VectorIndex port 的适配器。
// 将逻辑集合名（filename / content）映射为实际集合。
type RetrievalVectorIndex struct {
	repo *Repository
}

// NewRetrievalVectorIndex 创建适配器。
func NewRetrievalVectorIndex(repo *Repository) *RetrievalVectorIndex {
	return &RetrievalVectorIndex{repo: repo}
}

var _ retrieval.VectorIndex = (*RetrievalVectorIndex)(nil)

func collectionFor(logical string) string {
	if logical == retrieval.CollectionContent {
		return CollectionUploadsContent
	}
	return CollectionUploads
}

// EnsureCollection 确保逻辑集合可用。
func (r *RetrievalVectorIndex) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.EnsureCollection(ctx, collectionFor(collection), dimension)
}

// Upsert 写入点位。
func (r *RetrievalVectorIndex) Upsert(ctx context.Context, collection string, points []retrieval.VectorPoint) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	if len(points) == 0 {
		return nil
	}

	dimension := len(points[0].Vector)
	out := make([]*DocumentPoint, 0, len(points))
	for i := range points {
		p := points[i]
		out = append(out, &DocumentPoint{
			ID:          p.ID,
			Vector:      p.Vector,
			DocumentID:  p.Payload.DocumentID,
			Filename:    p.Payload.Filename,
			ContentType: p.Payload.ContentType,
			SizeBytes:   p.Payload.SizeBytes,
			CreatedAt:   p.Payload.CreatedAt.Unix(),
			Chunk:       p.Payload.Chunk,
			ChunkIndex:  int64(p.Payload.ChunkIndex),
			TotalChunks: int64(p.Payload.TotalChunks),
			ChunkType:   p.Payload.ChunkType,
		})
	}
	return r.repo.Upsert(ctx, collectionFor(collection), dimension, out)
}

// Search 向量检索。
func (r *RetrievalVectorIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]retrieval.VectorHit, error) {
	if r == nil || r.repo == nil {
		return nil, retrieval.ErrVectorDisabled
	}

	results, err := r.repo.Search(ctx, collectionFor(collection), vector, limit)
	if err != nil {
		return nil, err
	}

	out := make([]retrieval.VectorHit, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		out = append(out, retrieval.VectorHit{
			ID:    res.Point.ID,
			Score: float64(res.Score),
			Payload: retrieval.PointPayload{
				DocumentID:  res.Point.DocumentID,
				Filename:    res.Point.Filename,
				ContentType: res.Point.ContentType,
				SizeBytes:   res.Point.SizeBytes,
				CreatedAt:   time.Unix(res.Point.CreatedAt, 0),
				Chunk:       res.Point.Chunk,
				ChunkIndex:  int(res.Point.ChunkIndex),
				TotalChunks: int(res.Point.TotalChunks),
				ChunkType:   res.Point.ChunkType,
			},
		})
	}
	return out, nil
}

// DeleteByDocument 删除指定文档的全部点位。
func (r *RetrievalVectorIndex) DeleteByDocument(ctx context.Context, collection string, documentID int64) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.DeleteByDocument(ctx, collectionFor(collection), documentID)
}
