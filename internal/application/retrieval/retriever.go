package retrieval

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Retriever 单变体混合召回：内容分块召回与文件名召回并发执行，
// 结果按文档去重合并。
type Retriever struct {
	vector VectorIndex
}

// NewRetriever 创建召回器。
func NewRetriever(vector VectorIndex) *Retriever {
	return &Retriever{vector: vector}
}

// RetrieveVariant 对单个查询向量执行混合召回。
// 内容集合取 2*limit 条以给融合阶段留出候选余量，文件名集合取 limit 条。
// 同一文档在两个集合均命中时取均值分并标记 NameMatch。
func (r *Retriever) RetrieveVariant(ctx context.Context, vector []float32, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	var contentHits, filenameHits []VectorHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.vector.Search(gctx, CollectionContent, vector, 2*limit)
		if err != nil {
			return err
		}
		contentHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := r.vector.Search(gctx, CollectionFilename, vector, limit)
		if err != nil {
			return err
		}
		filenameHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeHits(contentHits, filenameHits), nil
}

// mergeHits 按文档去重合并两路召回。
// 内容命中取该文档分数最高的分块；双路命中取两路最高分的均值。
func mergeHits(contentHits, filenameHits []VectorHit) []SearchHit {
	type docAgg struct {
		best          *VectorHit
		bestScore     float64
		filenameScore float64
		hasContent    bool
		hasFilename   bool
		filenameHit   *VectorHit
	}
	aggs := make(map[int64]*docAgg)
	order := make([]int64, 0, len(contentHits)+len(filenameHits))

	for idx := range contentHits {
		h := &contentHits[idx]
		agg, ok := aggs[h.Payload.DocumentID]
		if !ok {
			agg = &docAgg{}
			aggs[h.Payload.DocumentID] = agg
			order = append(order, h.Payload.DocumentID)
		}
		if !agg.hasContent || h.Score > agg.bestScore {
			agg.best = h
			agg.bestScore = h.Score
		}
		agg.hasContent = true
	}
	for idx := range filenameHits {
		h := &filenameHits[idx]
		agg, ok := aggs[h.Payload.DocumentID]
		if !ok {
			agg = &docAgg{}
			aggs[h.Payload.DocumentID] = agg
			order = append(order, h.Payload.DocumentID)
		}
		if !agg.hasFilename || h.Score > agg.filenameScore {
			agg.filenameHit = h
			agg.filenameScore = h.Score
		}
		agg.hasFilename = true
	}

	out := make([]SearchHit, 0, len(order))
	for _, docID := range order {
		agg := aggs[docID]
		var src *VectorHit
		collection := CollectionContent
		score := agg.bestScore
		switch {
		case agg.hasContent && agg.hasFilename:
			src = agg.best
			score = (agg.bestScore + agg.filenameScore) / 2
		case agg.hasContent:
			src = agg.best
		default:
			src = agg.filenameHit
			collection = CollectionFilename
			score = agg.filenameScore
		}

		out = append(out, SearchHit{
			DocumentID:  src.Payload.DocumentID,
			Filename:    src.Payload.Filename,
			Chunk:       src.Payload.Chunk,
			ChunkIndex:  src.Payload.ChunkIndex,
			TotalChunks: src.Payload.TotalChunks,
			ChunkType:   ChunkType(src.Payload.ChunkType),
			ContentType: src.Payload.ContentType,
			SizeBytes:   src.Payload.SizeBytes,
			CreatedAt:   src.Payload.CreatedAt,
			Collection:  collection,
			NameMatch:   agg.hasContent && agg.hasFilename,
			VectorScore: score,
			RankedBy:    RankedByVector,
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].VectorScore > out[b].VectorScore
	})
	return out
}
