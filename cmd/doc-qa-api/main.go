// Package main 文档问答检索服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"doc-qa-api/internal/application/retrieval"
	"doc-qa-api/internal/config"
	"doc-qa-api/internal/infrastructure/embedding"
	"doc-qa-api/internal/infrastructure/llm"
	"doc-qa-api/internal/infrastructure/persistence/milvus"
	"doc-qa-api/internal/infrastructure/persistence/postgres"
	"doc-qa-api/internal/infrastructure/persistence/redis"
	"doc-qa-api/internal/infrastructure/rerank"
	"doc-qa-api/internal/interfaces/http/handler"
	"doc-qa-api/internal/interfaces/http/middleware"
	"doc-qa-api/internal/interfaces/http/router"
	einoobs "doc-qa-api/internal/observability/eino"
	"doc-qa-api/pkg/logger"
	"doc-qa-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// taggedExpander 在扩写调用前把提供商名写入 Context，
// 供 eino callbacks 上报带 provider 标签的指标。
type taggedExpander struct {
	inner    retrieval.QueryExpander
	provider string
}

func (e taggedExpander) Expand(ctx context.Context, query string, n int) ([]string, error) {
	return e.inner.Expand(einoobs.WithProvider(ctx, e.provider), query, n)
}

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting doc-qa-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化 Eino 全局 callbacks（指标/追踪）
	einoobs.Init()

	// Postgres（必需）
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	docRepo := postgres.NewDocumentRepository(pgClient)

	// Redis（必需，embedding 缓存与限流）
	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Milvus（可选，不可用时检索与索引降级）
	var (
		milvusClient *milvus.Client
		vectorIndex  retrieval.VectorIndex
	)
	milvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Warn("milvus unavailable, vector retrieval degraded", "error", err)
		milvusClient = nil
	} else {
		defer func() { _ = milvusClient.Close() }()
		vectorIndex = milvus.NewRetrievalVectorIndex(milvus.NewRepository(milvusClient))
	}

	// Embedding 提供商（可选缓存包装）
	var embedCache embedding.VectorCache
	if cfg.Embedding.CacheEnabled {
		embedCache = redis.NewEmbeddingCache(redisClient, cfg.Embedding.CacheTTL)
	}
	embedder, err := embedding.NewProvider(ctx, &cfg.Embedding, embedCache)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedding provider", err)
	}

	// LLM 查询扩写（可选）
	var expander retrieval.QueryExpander
	llmFactory := llm.NewEinoFactory(cfg)
	if chatModel, err := llmFactory.Default(ctx); err != nil {
		log.Warn("llm unavailable, query expansion disabled", "error", err)
	} else {
		expander = taggedExpander{
			inner:    retrieval.NewLLMExpander(chatModel, cfg.Retrieval.ExpandTimeout),
			provider: cfg.LLM.DefaultProvider,
		}
	}

	// 交叉编码器重排（可选）
	var reranker retrieval.Reranker
	if cfg.Rerank.Enabled {
		rerankClient, err := rerank.NewClient(&cfg.Rerank)
		if err != nil {
			log.Warn("rerank unavailable, falling back to fusion ordering", "error", err)
		} else {
			reranker = rerankClient
		}
	}

	// 检索管线
	extractor := retrieval.NewExtractor()
	chunker := retrieval.NewChunker(
		cfg.Retrieval.ChunkSize,
		cfg.Retrieval.MinChunkSize,
		cfg.Retrieval.MaxChunksPerDoc,
		cfg.Retrieval.ChunkOverlapRatio,
	)
	indexer := retrieval.NewIndexer(extractor, chunker, embedder, vectorIndex, cfg.Embedding.BatchSize)
	engine := retrieval.NewEngine(embedder, vectorIndex, expander, reranker, retrieval.EngineOptions{
		DefaultLimit:      cfg.Retrieval.DefaultLimit,
		MaxLimit:          cfg.Retrieval.MaxLimit,
		NumVariants:       cfg.Retrieval.NumVariants,
		RRFK:              cfg.Retrieval.RRFK,
		RerankTopK:        cfg.Retrieval.RerankTopK,
		FanoutConcurrency: cfg.Retrieval.FanoutConcurrency,
		SearchTimeout:     cfg.Retrieval.SearchTimeout,
	})

	// HTTP 层
	rateLimit := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
		Enabled:           cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             cfg.Security.RateLimit.Burst,
	}, redisClient.Redis())

	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(pgClient, redisClient, milvusClient),
		Upload: handler.NewUploadHandler(docRepo, indexer, vectorIndex, cfg.Storage),
		Search: handler.NewSearchHandler(engine),
	}, rateLimit)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
