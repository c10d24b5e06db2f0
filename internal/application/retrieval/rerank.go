package retrieval

import (
	"context"
	"sort"

	"doc-qa-api/pkg/logger"
	"doc-qa-api/pkg/metrics"
)

const defaultRerankTopK = 50

// rerankResults 用交叉编码器对前 topK 条命中重排。
// topK 之外的命中保持融合序追加在重排结果之后。
// 打分失败时静默回退融合序，返回值第二项报告重排是否生效。
func rerankResults(ctx context.Context, reranker Reranker, query string, hits []SearchHit, topK int) ([]SearchHit, bool) {
	if reranker == nil || len(hits) == 0 {
		return hits, false
	}
	if topK <= 0 {
		topK = defaultRerankTopK
	}

	head := hits
	var tail []SearchHit
	if len(hits) > topK {
		head = hits[:topK]
		tail = hits[topK:]
	}

	texts := make([]string, len(head))
	for i, h := range head {
		texts[i] = h.Chunk
	}

	scores, err := reranker.Score(ctx, query, texts)
	if err != nil || len(scores) != len(head) {
		metrics.RerankFallbacksTotal.Inc()
		if err != nil {
			logger.FromContext(ctx).Warn("rerank failed, keeping fusion order", "error", err.Error())
		} else {
			logger.FromContext(ctx).Warn("rerank score count mismatch, keeping fusion order",
				"got", len(scores), "want", len(head))
		}
		return hits, false
	}

	reranked := make([]SearchHit, len(head))
	copy(reranked, head)
	for i := range reranked {
		s := scores[i]
		reranked[i].RerankScore = &s
		reranked[i].RankedBy = RankedByRerank
	}
	sort.SliceStable(reranked, func(a, b int) bool {
		return *reranked[a].RerankScore > *reranked[b].RerankScore
	})

	return append(reranked, tail...), true
}
