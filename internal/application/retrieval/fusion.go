package retrieval

import "sort"

const defaultRRFK = 60

// reciprocalRankFusion 对多个变体的召回列表做 RRF 融合。
// 每个文档的融合分为其在各列表中 1/(rank+k) 之和，rank 从 0 计。
// 文档的展示字段取其首次出现的命中，NameMatch 按各列表求并。
func reciprocalRankFusion(variantHits [][]SearchHit, k int) []SearchHit {
	if k <= 0 {
		k = defaultRRFK
	}

	type fused struct {
		hit   SearchHit
		score float64
	}
	byDoc := make(map[int64]*fused)
	order := make([]int64, 0, 32)

	for _, hits := range variantHits {
		for rank, h := range hits {
			contribution := 1.0 / float64(rank+k)
			f, ok := byDoc[h.DocumentID]
			if !ok {
				f = &fused{hit: h}
				byDoc[h.DocumentID] = f
				order = append(order, h.DocumentID)
			}
			f.score += contribution
			if h.NameMatch {
				f.hit.NameMatch = true
			}
			// 展示分块取各变体中向量分最高者
			if h.VectorScore > f.hit.VectorScore {
				nameMatch := f.hit.NameMatch
				f.hit = h
				f.hit.NameMatch = nameMatch || h.NameMatch
			}
		}
	}

	out := make([]SearchHit, 0, len(order))
	for _, docID := range order {
		f := byDoc[docID]
		f.hit.FusedScore = f.score
		f.hit.RankedBy = RankedByFusion
		out = append(out, f.hit)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].FusedScore > out[b].FusedScore
	})
	return out
}
