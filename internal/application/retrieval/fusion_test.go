package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(docID int64, score float64) SearchHit {
	return SearchHit{DocumentID: docID, VectorScore: score, RankedBy: RankedByVector}
}

func TestRRFSingleList(t *testing.T) {
	hits := []SearchHit{hit(1, 0.9), hit(2, 0.8), hit(3, 0.7)}
	fused := reciprocalRankFusion([][]SearchHit{hits}, 60)
	require.Len(t, fused, 3)
	assert.Equal(t, int64(1), fused[0].DocumentID)
	assert.InDelta(t, 1.0/60.0, fused[0].FusedScore, 1e-9)
	assert.InDelta(t, 1.0/61.0, fused[1].FusedScore, 1e-9)
	assert.InDelta(t, 1.0/62.0, fused[2].FusedScore, 1e-9)
	for _, h := range fused {
		assert.Equal(t, RankedByFusion, h.RankedBy)
	}
}

func TestRRFConsensusWins(t *testing.T) {
	// 文档 7 在三个变体中均居第二，应胜过只在单个变体中居首的文档
	v1 := []SearchHit{hit(1, 0.9), hit(7, 0.8)}
	v2 := []SearchHit{hit(2, 0.9), hit(7, 0.8)}
	v3 := []SearchHit{hit(3, 0.9), hit(7, 0.8)}
	fused := reciprocalRankFusion([][]SearchHit{v1, v2, v3}, 60)
	require.Len(t, fused, 4)
	assert.Equal(t, int64(7), fused[0].DocumentID)
	assert.InDelta(t, 3.0/61.0, fused[0].FusedScore, 1e-9)
}

func TestRRFNameMatchUnion(t *testing.T) {
	a := hit(1, 0.5)
	a.NameMatch = true
	b := hit(1, 0.9) // 分更高但无 name match
	fused := reciprocalRankFusion([][]SearchHit{{a}, {b}}, 60)
	require.Len(t, fused, 1)
	assert.True(t, fused[0].NameMatch)
	assert.Equal(t, 0.9, fused[0].VectorScore)
}

func TestRRFDefaultK(t *testing.T) {
	fused := reciprocalRankFusion([][]SearchHit{{hit(1, 0.9)}}, 0)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/60.0, fused[0].FusedScore, 1e-9)
}

func TestRRFEmptyInput(t *testing.T) {
	assert.Empty(t, reciprocalRankFusion(nil, 60))
	assert.Empty(t, reciprocalRankFusion([][]SearchHit{{}, {}}, 60))
}
