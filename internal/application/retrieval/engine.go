package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"doc-qa-api/pkg/logger"
	"doc-qa-api/pkg/metrics"
)

// EngineOptions 检索管线参数。
type EngineOptions struct {
	DefaultLimit      int
	MaxLimit          int
	NumVariants       int
	RRFK              int
	RerankTopK        int
	FanoutConcurrency int
	SearchTimeout     time.Duration
}

func (o *EngineOptions) normalize() {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 10
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
	if o.NumVariants <= 0 {
		o.NumVariants = 3
	}
	if o.RRFK <= 0 {
		o.RRFK = defaultRRFK
	}
	if o.RerankTopK <= 0 {
		o.RerankTopK = defaultRerankTopK
	}
	if o.FanoutConcurrency <= 0 {
		o.FanoutConcurrency = 4
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 30 * time.Second
	}
}

// Engine 检索引擎：查询扩写、按变体并发混合召回、RRF 融合、可选交叉编码器重排。
type Engine struct {
	embedder  EmbeddingProvider
	vector    VectorIndex
	retriever *Retriever
	expander  QueryExpander
	reranker  Reranker
	opts      EngineOptions
}

// NewEngine 创建检索引擎。expander 与 reranker 可为 nil，对应能力自动退化。
func NewEngine(embedder EmbeddingProvider, vector VectorIndex, expander QueryExpander, reranker Reranker, opts EngineOptions) *Engine {
	opts.normalize()
	if expander == nil {
		expander = IdentityExpander{}
	}
	return &Engine{
		embedder:  embedder,
		vector:    vector,
		retriever: NewRetriever(vector),
		expander:  expander,
		reranker:  reranker,
		opts:      opts,
	}
}

// Enabled 报告向量检索能力是否可用。
func (e *Engine) Enabled() bool {
	return e != nil && e.embedder != nil && e.vector != nil
}

func (e *Engine) ensureReady(ctx context.Context) error {
	if !e.Enabled() {
		return ErrVectorDisabled
	}
	dim := e.embedder.Dimension()
	if err := e.vector.EnsureCollection(ctx, CollectionFilename, dim); err != nil {
		return err
	}
	return e.vector.EnsureCollection(ctx, CollectionContent, dim)
}

// Search 执行完整检索管线。基础设施故障不报错，以 degraded 模式返回。
func (e *Engine) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if in.Limit <= 0 {
		in.Limit = e.opts.DefaultLimit
	}
	if in.Limit > e.opts.MaxLimit {
		in.Limit = e.opts.MaxLimit
	}
	numVariants := in.NumVariants
	if numVariants <= 0 {
		numVariants = e.opts.NumVariants
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.SearchTimeout)
	defer cancel()

	out := &SearchOutput{Mode: SearchModeOK}
	defer func() {
		metrics.SearchesTotal.WithLabelValues(string(out.Mode)).Inc()
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	if err := e.ensureReady(ctx); err != nil {
		out.Mode = SearchModeDegraded
		out.DisabledReason = err.Error()
		out.QueryVariants = []string{in.Query}
		log.Warn("search degraded: vector index unavailable", "error", err.Error())
		return out, nil
	}

	// 查询扩写失败时静默退回原查询
	variants, err := e.expander.Expand(ctx, in.Query, numVariants)
	if err != nil || len(variants) == 0 {
		if err != nil {
			log.Warn("query expansion failed, using original query", "error", err.Error())
		}
		variants = []string{in.Query}
	}
	out.QueryVariants = variants
	metrics.QueryVariantsTotal.Add(float64(len(variants)))

	// 按变体并发召回；单变体失败只丢弃该变体
	variantHits := make([][]SearchHit, len(variants))
	var mu sync.Mutex
	var lastErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.FanoutConcurrency)
	for idx, variant := range variants {
		g.Go(func() error {
			vec, err := e.embedder.Embed(gctx, variant)
			if err != nil {
				metrics.VariantDroppedTotal.WithLabelValues("embed").Inc()
				log.Warn("variant embedding failed", "variant", variant, "error", err.Error())
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			hits, err := e.retriever.RetrieveVariant(gctx, vec, in.Limit)
			if err != nil {
				metrics.VariantDroppedTotal.WithLabelValues("search").Inc()
				log.Warn("variant retrieval failed", "variant", variant, "error", err.Error())
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			variantHits[idx] = hits
			return nil
		})
	}
	// goroutine 均不返回错误，Wait 仅用于同步
	_ = g.Wait()

	survived := variantHits[:0:0]
	for _, hits := range variantHits {
		if hits != nil {
			survived = append(survived, hits)
		}
	}
	if len(survived) == 0 {
		out.Mode = SearchModeDegraded
		if lastErr != nil {
			out.DisabledReason = lastErr.Error()
		} else {
			out.DisabledReason = ErrVectorDisabled.Error()
		}
		log.Warn("search degraded: all variants failed", "reason", out.DisabledReason)
		return out, nil
	}

	fused := reciprocalRankFusion(survived, e.opts.RRFK)

	if in.Rerank && e.reranker != nil {
		fused, out.Reranked = rerankResults(ctx, e.reranker, in.Query, fused, e.opts.RerankTopK)
	}

	if len(fused) > in.Limit {
		fused = fused[:in.Limit]
	}
	out.Hits = fused
	if len(out.Hits) == 0 {
		out.Mode = SearchModeNoResults
	}

	log.Info("search completed",
		"query", in.Query,
		"variants", len(variants),
		"hits", len(out.Hits),
		"mode", string(out.Mode),
		"reranked", out.Reranked,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
