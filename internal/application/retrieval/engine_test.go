package retrieval

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryIndex 进程内 VectorIndex 假实现。
type memoryIndex struct {
	mu          sync.Mutex
	collections map[string][]VectorHit
	ensured     map[string]int
	lastLimit   map[string]int
	failSearch  bool
	failEnsure  bool
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		collections: make(map[string][]VectorHit),
		ensured:     make(map[string]int),
		lastLimit:   make(map[string]int),
	}
}

func (m *memoryIndex) add(collection string, hits ...VectorHit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], hits...)
}

func (m *memoryIndex) EnsureCollection(_ context.Context, collection string, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEnsure {
		return errors.New("vector store unreachable")
	}
	m.ensured[collection] = dimension
	return nil
}

func (m *memoryIndex) Upsert(_ context.Context, collection string, points []VectorPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.collections[collection] = append(m.collections[collection], VectorHit{
			ID:      p.ID,
			Score:   1,
			Payload: p.Payload,
		})
	}
	return nil
}

func (m *memoryIndex) Search(_ context.Context, collection string, _ []float32, limit int) ([]VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSearch {
		return nil, errors.New("vector search failed")
	}
	m.lastLimit[collection] = limit
	hits := append([]VectorHit(nil), m.collections[collection]...)
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *memoryIndex) DeleteByDocument(_ context.Context, collection string, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.collections[collection][:0]
	for _, h := range m.collections[collection] {
		if h.Payload.DocumentID != documentID {
			kept = append(kept, h)
		}
	}
	m.collections[collection] = kept
	return nil
}

// fakeEmbedder 确定性向量化假实现。
type fakeEmbedder struct {
	dim  int
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("%w: connection refused", ErrEmbedderUnavailable)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.Dimension())
		h := fnv.New32a()
		h.Write([]byte(text))
		vec[int(h.Sum32())%len(vec)] = 1
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int {
	if f.dim <= 0 {
		return 8
	}
	return f.dim
}

func (f *fakeEmbedder) Identity() string { return "fake/test" }

type fakeExpander struct {
	variants []string
	err      error
}

func (f *fakeExpander) Expand(_ context.Context, query string, _ int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]string{query}, f.variants...), nil
}

func newTestEngine(idx *memoryIndex, embedder EmbeddingProvider, expander QueryExpander, reranker Reranker) *Engine {
	return NewEngine(embedder, idx, expander, reranker, EngineOptions{
		DefaultLimit: 10,
		NumVariants:  3,
	})
}

func TestEngineSearchReturnsHits(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent,
		vecHit(1000, 1, 0.9, "milvus configuration guide"),
		vecHit(2000, 2, 0.5, "unrelated content"),
	)
	idx.add(CollectionFilename, vecHit(1, 1, 0.8, "milvus.md"))

	e := newTestEngine(idx, &fakeEmbedder{}, nil, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "milvus setup"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeOK, out.Mode)
	require.Len(t, out.Hits, 2)
	assert.Equal(t, int64(1), out.Hits[0].DocumentID)
	assert.True(t, out.Hits[0].NameMatch)
	assert.Equal(t, RankedByFusion, out.Hits[0].RankedBy)
	assert.Equal(t, []string{"milvus setup"}, out.QueryVariants)
	assert.False(t, out.Reranked)

	// 两个集合均应被初始化
	assert.Len(t, idx.ensured, 2)
}

func TestEngineSearchEmptyQueryRejected(t *testing.T) {
	e := newTestEngine(newMemoryIndex(), &fakeEmbedder{}, nil, nil)
	_, err := e.Search(context.Background(), SearchInput{Query: "   "})
	assert.Error(t, err)
}

func TestEngineSearchNoResults(t *testing.T) {
	e := newTestEngine(newMemoryIndex(), &fakeEmbedder{}, nil, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeNoResults, out.Mode)
	assert.Empty(t, out.Hits)
	assert.Empty(t, out.DisabledReason)
}

func TestEngineSearchDegradedOnEmbedderFailure(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent, vecHit(1000, 1, 0.9, "content"))

	e := newTestEngine(idx, &fakeEmbedder{fail: true}, nil, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "query"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeDegraded, out.Mode)
	assert.NotEmpty(t, out.DisabledReason)
	assert.Empty(t, out.Hits)
}

func TestEngineSearchDegradedWhenVectorStoreDown(t *testing.T) {
	idx := newMemoryIndex()
	idx.failEnsure = true

	e := newTestEngine(idx, &fakeEmbedder{}, nil, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "query"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeDegraded, out.Mode)
	assert.Contains(t, out.DisabledReason, "unreachable")
}

func TestEngineSearchMissingVectorCapability(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil, EngineOptions{})
	out, err := e.Search(context.Background(), SearchInput{Query: "query"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeDegraded, out.Mode)
	assert.Equal(t, ErrVectorDisabled.Error(), out.DisabledReason)
}

func TestEngineSearchMultiVariantFusion(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent,
		vecHit(1000, 1, 0.9, "alpha"),
		vecHit(2000, 2, 0.8, "beta"),
		vecHit(3000, 3, 0.7, "gamma"),
	)

	exp := &fakeExpander{variants: []string{"variant two", "variant three"}}
	e := newTestEngine(idx, &fakeEmbedder{}, exp, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "original"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeOK, out.Mode)
	require.Len(t, out.QueryVariants, 3)
	require.Len(t, out.Hits, 3)

	// 三个变体召回相同列表，融合分应为单变体的三倍
	assert.InDelta(t, 3.0/60.0, out.Hits[0].FusedScore, 1e-9)
}

func TestEngineSearchExpansionFailureFallsBackToOriginal(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent, vecHit(1000, 1, 0.9, "alpha"))

	exp := &fakeExpander{err: errors.New("llm quota exceeded")}
	e := newTestEngine(idx, &fakeEmbedder{}, exp, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "original"})
	require.NoError(t, err)
	assert.Equal(t, SearchModeOK, out.Mode)
	assert.Equal(t, []string{"original"}, out.QueryVariants)
	require.Len(t, out.Hits, 1)
}

func TestEngineSearchRerankApplied(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent,
		vecHit(1000, 1, 0.9, "first"),
		vecHit(2000, 2, 0.8, "second"),
	)

	rr := &fakeReranker{scores: []float64{0.1, 0.9}}
	e := newTestEngine(idx, &fakeEmbedder{}, nil, rr)
	out, err := e.Search(context.Background(), SearchInput{Query: "query", Rerank: true})
	require.NoError(t, err)
	assert.True(t, out.Reranked)
	require.Len(t, out.Hits, 2)
	assert.Equal(t, int64(2), out.Hits[0].DocumentID)
	assert.Equal(t, RankedByRerank, out.Hits[0].RankedBy)
}

func TestEngineSearchRerankFailureKeepsFusionOrder(t *testing.T) {
	idx := newMemoryIndex()
	idx.add(CollectionContent,
		vecHit(1000, 1, 0.9, "first"),
		vecHit(2000, 2, 0.8, "second"),
	)

	rr := &fakeReranker{err: errors.New("reranker offline")}
	e := newTestEngine(idx, &fakeEmbedder{}, nil, rr)
	out, err := e.Search(context.Background(), SearchInput{Query: "query", Rerank: true})
	require.NoError(t, err)
	assert.Equal(t, SearchModeOK, out.Mode)
	assert.False(t, out.Reranked)
	assert.Equal(t, int64(1), out.Hits[0].DocumentID)
}

func TestEngineSearchLimitTruncates(t *testing.T) {
	idx := newMemoryIndex()
	for i := int64(1); i <= 8; i++ {
		idx.add(CollectionContent, vecHit(i*1000, i, 1.0-float64(i)*0.05, "chunk"))
	}

	e := newTestEngine(idx, &fakeEmbedder{}, nil, nil)
	out, err := e.Search(context.Background(), SearchInput{Query: "query", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, out.Hits, 3)
}
