package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecHit(id int64, docID int64, score float64, chunk string) VectorHit {
	return VectorHit{
		ID:    id,
		Score: score,
		Payload: PointPayload{
			DocumentID: docID,
			Filename:   "doc.txt",
			Chunk:      chunk,
		},
	}
}

func TestMergeHitsContentOnly(t *testing.T) {
	content := []VectorHit{
		vecHit(1000, 1, 0.9, "chunk a"),
		vecHit(1001, 1, 0.7, "chunk b"),
		vecHit(2000, 2, 0.8, "chunk c"),
	}
	out := mergeHits(content, nil)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].DocumentID)
	assert.Equal(t, "chunk a", out[0].Chunk) // 取分数最高的分块
	assert.Equal(t, 0.9, out[0].VectorScore)
	assert.False(t, out[0].NameMatch)
	assert.Equal(t, CollectionContent, out[0].Collection)
}

func TestMergeHitsFilenameOnly(t *testing.T) {
	filename := []VectorHit{vecHit(3, 3, 0.6, "report.pdf")}
	out := mergeHits(nil, filename)
	require.Len(t, out, 1)
	assert.Equal(t, CollectionFilename, out[0].Collection)
	assert.Equal(t, 0.6, out[0].VectorScore)
	assert.False(t, out[0].NameMatch)
}

func TestMergeHitsNameMatchAveragesScores(t *testing.T) {
	content := []VectorHit{vecHit(1000, 1, 0.8, "body chunk")}
	filename := []VectorHit{vecHit(1, 1, 0.6, "notes.txt")}
	out := mergeHits(content, filename)
	require.Len(t, out, 1)
	assert.True(t, out[0].NameMatch)
	assert.InDelta(t, 0.7, out[0].VectorScore, 1e-9)
	// 展示内容取内容分块
	assert.Equal(t, "body chunk", out[0].Chunk)
	assert.Equal(t, CollectionContent, out[0].Collection)
}

func TestMergeHitsSortsByScore(t *testing.T) {
	content := []VectorHit{
		vecHit(1000, 1, 0.5, "low"),
		vecHit(2000, 2, 0.9, "high"),
	}
	out := mergeHits(content, nil)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].DocumentID)
}

func TestRetrieveVariantQueriesBothCollections(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent, vecHit(1000, 1, 0.9, "content"))
	idx.add(CollectionFilename, vecHit(2, 2, 0.8, "other.txt"))

	r := NewRetriever(idx)
	out, err := r.RetrieveVariant(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, []int{10, 5}, []int{idx.lastLimit[CollectionContent], idx.lastLimit[CollectionFilename]})
}

func TestRetrieveVariantPropagatesError(t *testing.T) {
	idx := newMemoryIndex()
	idx.failSearch = true
	r := NewRetriever(idx)
	_, err := r.RetrieveVariant(context.Background(), []float32{1}, 5)
	assert.Error(t, err)
}
