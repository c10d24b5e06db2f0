package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReranker struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeReranker) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.scores) != len(texts) {
		return f.scores, nil
	}
	return f.scores, nil
}

func fusedHit(docID int64, fusedScore float64) SearchHit {
	return SearchHit{DocumentID: docID, Chunk: "text", FusedScore: fusedScore, RankedBy: RankedByFusion}
}

func TestRerankReordersByScore(t *testing.T) {
	hits := []SearchHit{fusedHit(1, 0.3), fusedHit(2, 0.2), fusedHit(3, 0.1)}
	rr := &fakeReranker{scores: []float64{0.1, 0.9, 0.5}}

	out, ok := rerankResults(context.Background(), rr, "q", hits, 50)
	require.True(t, ok)
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].DocumentID)
	assert.Equal(t, int64(3), out[1].DocumentID)
	assert.Equal(t, int64(1), out[2].DocumentID)
	for _, h := range out {
		require.NotNil(t, h.RerankScore)
		assert.Equal(t, RankedByRerank, h.RankedBy)
	}
	assert.Equal(t, 0.9, *out[0].RerankScore)
}

func TestRerankFailureFallsBack(t *testing.T) {
	hits := []SearchHit{fusedHit(1, 0.3), fusedHit(2, 0.2)}
	rr := &fakeReranker{err: errors.New("rerank endpoint down")}

	out, ok := rerankResults(context.Background(), rr, "q", hits, 50)
	assert.False(t, ok)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].DocumentID)
	assert.Nil(t, out[0].RerankScore)
	assert.Equal(t, RankedByFusion, out[0].RankedBy)
}

func TestRerankScoreCountMismatchFallsBack(t *testing.T) {
	hits := []SearchHit{fusedHit(1, 0.3), fusedHit(2, 0.2)}
	rr := &fakeReranker{scores: []float64{0.5}}

	out, ok := rerankResults(context.Background(), rr, "q", hits, 50)
	assert.False(t, ok)
	assert.Equal(t, int64(1), out[0].DocumentID)
}

func TestRerankTopKTailKeepsFusionOrder(t *testing.T) {
	hits := []SearchHit{fusedHit(1, 0.4), fusedHit(2, 0.3), fusedHit(3, 0.2), fusedHit(4, 0.1)}
	rr := &fakeReranker{scores: []float64{0.1, 0.9}}

	out, ok := rerankResults(context.Background(), rr, "q", hits, 2)
	require.True(t, ok)
	require.Len(t, out, 4)
	// 前二重排，后二保持融合序
	assert.Equal(t, int64(2), out[0].DocumentID)
	assert.Equal(t, int64(1), out[1].DocumentID)
	assert.Equal(t, int64(3), out[2].DocumentID)
	assert.Equal(t, int64(4), out[3].DocumentID)
	assert.Nil(t, out[2].RerankScore)
}

func TestRerankNilRerankerNoop(t *testing.T) {
	hits := []SearchHit{fusedHit(1, 0.4)}
	out, ok := rerankResults(context.Background(), nil, "q", hits, 50)
	assert.False(t, ok)
	assert.Equal(t, hits, out)
}
