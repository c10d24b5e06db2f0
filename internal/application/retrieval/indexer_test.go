package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(idx *memoryIndex, embedder EmbeddingProvider) *Indexer {
	return NewIndexer(NewExtractor(), NewChunker(500, 50, 500, 0.25), embedder, idx, 4)
}

func testMeta(id int64, filename string) DocumentMeta {
	return DocumentMeta{
		ID:          id,
		Filename:    filename,
		ContentType: "text/plain",
		SizeBytes:   1024,
		CreatedAt:   time.Now(),
	}
}

func TestIndexerIndexesFilenameAndContent(t *testing.T) {
	idx := newMemoryIndex()
	ix := newTestIndexer(idx, &fakeEmbedder{})

	body := []byte(strings.Repeat("retrieval pipelines fuse ranked lists from query variants. ", 20))
	res := ix.Index(context.Background(), testMeta(7, "fusion.txt"), body)
	require.NoError(t, res.Err)
	assert.True(t, res.FilenameIndexed)
	assert.Greater(t, res.ChunksIndexed, 0)
	assert.True(t, res.Success())

	// 文件名点位 ID 为文档 ID
	require.Len(t, idx.collections[CollectionFilename], 1)
	assert.Equal(t, int64(7), idx.collections[CollectionFilename][0].ID)

	// 内容点位 ID 为 docID*1000+序号
	content := idx.collections[CollectionContent]
	require.Len(t, content, res.ChunksIndexed)
	for i, h := range content {
		assert.Equal(t, int64(7000+i), h.ID)
		assert.Equal(t, int64(7), h.Payload.DocumentID)
		assert.Equal(t, "fusion.txt", h.Payload.Filename)
	}
}

func TestIndexerEmptyContentStillIndexesFilename(t *testing.T) {
	idx := newMemoryIndex()
	ix := newTestIndexer(idx, &fakeEmbedder{})

	res := ix.Index(context.Background(), testMeta(3, "empty.txt"), nil)
	assert.True(t, res.FilenameIndexed)
	assert.Equal(t, 0, res.ChunksIndexed)
	assert.ErrorIs(t, res.Err, ErrNoSearchableContent)
	assert.True(t, res.Success())
}

func TestIndexerEmbedderDownFailsBothStages(t *testing.T) {
	idx := newMemoryIndex()
	ix := newTestIndexer(idx, &fakeEmbedder{fail: true})

	body := []byte(strings.Repeat("some document content here. ", 20))
	res := ix.Index(context.Background(), testMeta(3, "doc.txt"), body)
	assert.False(t, res.FilenameIndexed)
	assert.Equal(t, 0, res.ChunksIndexed)
	assert.False(t, res.Success())
	assert.Error(t, res.Err)
}

func TestIndexerReindexReplacesStalePoints(t *testing.T) {
	idx := newMemoryIndex()
	ix := newTestIndexer(idx, &fakeEmbedder{})

	long := []byte(strings.Repeat("paragraph one with plenty of content to index. ", 40))
	res := ix.Index(context.Background(), testMeta(5, "doc.txt"), long)
	require.NoError(t, res.Err)
	firstCount := res.ChunksIndexed
	require.Greater(t, firstCount, 1)

	short := []byte(strings.Repeat("much shorter now but still above the minimum chunk size. ", 2))
	res = ix.Index(context.Background(), testMeta(5, "doc.txt"), short)
	require.NoError(t, res.Err)
	assert.Less(t, res.ChunksIndexed, firstCount)
	assert.Len(t, idx.collections[CollectionContent], res.ChunksIndexed)
	assert.Len(t, idx.collections[CollectionFilename], 1)
}

func TestIndexerValidation(t *testing.T) {
	ix := newTestIndexer(newMemoryIndex(), &fakeEmbedder{})
	assert.Error(t, ix.Index(context.Background(), DocumentMeta{Filename: "x"}, nil).Err)
	assert.Error(t, ix.Index(context.Background(), DocumentMeta{ID: 1}, nil).Err)
}

func TestIndexerDisabledWithoutEmbedder(t *testing.T) {
	ix := NewIndexer(NewExtractor(), NewChunker(0, 0, 0, 0.25), nil, newMemoryIndex(), 0)
	assert.False(t, ix.Enabled())
	res := ix.Index(context.Background(), testMeta(1, "a.txt"), []byte("x"))
	assert.ErrorIs(t, res.Err, ErrVectorDisabled)
}

func TestIndexerTransientErrorRetriedOnce(t *testing.T) {
	idx := newMemoryIndex()
	flaky := &flakyEmbedder{fakeEmbedder: fakeEmbedder{}, failuresLeft: 1}
	ix := newTestIndexer(idx, flaky)

	body := []byte(strings.Repeat("transient failures should be retried exactly once. ", 10))
	res := ix.Index(context.Background(), testMeta(9, "retry.txt"), body)
	require.NoError(t, res.Err)
	assert.True(t, res.Success())
	assert.GreaterOrEqual(t, flaky.calls, 2)
}

// flakyEmbedder 前 failuresLeft 次调用返回瞬时错误。
type flakyEmbedder struct {
	fakeEmbedder
	failuresLeft int
	calls        int
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, ErrEmbeddingTransient
	}
	return f.fakeEmbedder.EmbedBatch(ctx, texts)
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
