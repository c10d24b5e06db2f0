package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"doc-qa-api/pkg/logger"
	"doc-qa-api/pkg/metrics"
)

const (
	// CollectionFilename 文件名点位集合（逻辑名）
	CollectionFilename = "filename"
	// CollectionContent 内容分块点位集合（逻辑名）
	CollectionContent = "content"

	// pointIDStride 单文档的内容点位 ID 空间：
	// 文件名点位 ID 为文档 ID，内容点位 ID 为 docID*stride+ordinal。
	pointIDStride = 1000

	// chunkPreviewRunes 写入载荷的分块文本长度上限
	chunkPreviewRunes = 300

	defaultEmbeddingBatch = 64
)

// Indexer 文档索引器。文件名与内容分块分别向量化后写入两个集合，
// 两个阶段彼此独立，单阶段失败不影响另一阶段。
type Indexer struct {
	extractor *Extractor
	chunker   *Chunker
	embedder  EmbeddingProvider
	vector    VectorIndex

	embeddingBatchSize int
}

// NewIndexer 创建索引器。
func NewIndexer(extractor *Extractor, chunker *Chunker, embedder EmbeddingProvider, vector VectorIndex, embeddingBatchSize int) *Indexer {
	bs := embeddingBatchSize
	if bs <= 0 {
		bs = defaultEmbeddingBatch
	}
	return &Indexer{
		extractor:          extractor,
		chunker:            chunker,
		embedder:           embedder,
		vector:             vector,
		embeddingBatchSize: bs,
	}
}

// Enabled 报告向量索引能力是否可用。
func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

func (i *Indexer) ensureReady(ctx context.Context) error {
	if !i.Enabled() {
		return ErrVectorDisabled
	}
	dim := i.embedder.Dimension()
	if err := i.vector.EnsureCollection(ctx, CollectionFilename, dim); err != nil {
		return err
	}
	return i.vector.EnsureCollection(ctx, CollectionContent, dim)
}

// Index 对单个文档执行文件名与内容两级索引。重复调用会先清理旧点位。
func (i *Indexer) Index(ctx context.Context, meta DocumentMeta, data []byte) IndexResult {
	log := logger.FromContext(ctx)
	start := time.Now()
	defer func() {
		metrics.IndexingDuration.Observe(time.Since(start).Seconds())
	}()

	if meta.ID <= 0 {
		return IndexResult{Err: fmt.Errorf("document id is required")}
	}
	if strings.TrimSpace(meta.Filename) == "" {
		return IndexResult{Err: fmt.Errorf("filename is required")}
	}
	if !i.Enabled() {
		return IndexResult{Err: ErrVectorDisabled}
	}
	if err := i.ensureReady(ctx); err != nil {
		return IndexResult{Err: err}
	}

	// 重建索引前清理旧点位，避免分块数变化后残留
	if err := i.vector.DeleteByDocument(ctx, CollectionFilename, meta.ID); err != nil {
		log.Warn("failed to delete stale filename point", "document_id", meta.ID, "error", err.Error())
	}
	if err := i.vector.DeleteByDocument(ctx, CollectionContent, meta.ID); err != nil {
		log.Warn("failed to delete stale content points", "document_id", meta.ID, "error", err.Error())
	}

	var result IndexResult

	// 阶段一：文件名点位
	if err := i.indexFilename(ctx, meta); err != nil {
		log.Warn("filename indexing failed",
			"document_id", meta.ID,
			"filename", meta.Filename,
			"error", err.Error(),
		)
		result.Err = err
	} else {
		result.FilenameIndexed = true
	}

	// 阶段二：内容分块点位
	n, err := i.indexContent(ctx, meta, data)
	if err != nil {
		log.Warn("content indexing failed",
			"document_id", meta.ID,
			"filename", meta.Filename,
			"error", err.Error(),
		)
		if result.Err == nil {
			result.Err = err
		}
	}
	result.ChunksIndexed = n

	status := "failed"
	if result.Success() {
		status = "ok"
		if result.Err != nil {
			status = "partial"
		}
	}
	metrics.DocumentsIndexedTotal.WithLabelValues(status).Inc()
	if n > 0 {
		metrics.ChunksIndexedTotal.Add(float64(n))
	}

	log.Info("document indexed",
		"document_id", meta.ID,
		"filename", meta.Filename,
		"filename_indexed", result.FilenameIndexed,
		"chunks_indexed", result.ChunksIndexed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func (i *Indexer) indexFilename(ctx context.Context, meta DocumentMeta) error {
	vectors, err := i.embedWithRetry(ctx, []string{meta.Filename})
	if err != nil {
		return err
	}
	point := VectorPoint{
		ID:     meta.ID,
		Vector: vectors[0],
		Payload: PointPayload{
			DocumentID:  meta.ID,
			Filename:    meta.Filename,
			ContentType: meta.ContentType,
			SizeBytes:   meta.SizeBytes,
			CreatedAt:   meta.CreatedAt,
			Chunk:       meta.Filename,
			ChunkIndex:  0,
			TotalChunks: 1,
		},
	}
	return i.vector.Upsert(ctx, CollectionFilename, []VectorPoint{point})
}

func (i *Indexer) indexContent(ctx context.Context, meta DocumentMeta, data []byte) (int, error) {
	text := i.extractor.Extract(ctx, meta.Filename, meta.ContentType, data)
	if text == "" {
		return 0, ErrNoSearchableContent
	}
	chunks := i.chunker.Chunk(ctx, text)
	if len(chunks) == 0 {
		return 0, ErrNoSearchableContent
	}

	points := make([]VectorPoint, 0, len(chunks))
	embedInputs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Index >= pointIDStride {
			// 序号超出点位 ID 空间，余下分块不再索引
			logger.FromContext(ctx).Warn("chunk ordinal exceeds point id space, truncating",
				"document_id", meta.ID,
				"chunk_index", chunk.Index,
			)
			break
		}
		embedInputs = append(embedInputs, chunk.Text)
		points = append(points, VectorPoint{
			ID: meta.ID*pointIDStride + int64(chunk.Index),
			Payload: PointPayload{
				DocumentID:  meta.ID,
				Filename:    meta.Filename,
				ContentType: meta.ContentType,
				SizeBytes:   meta.SizeBytes,
				CreatedAt:   meta.CreatedAt,
				Chunk:       truncateRunes(chunk.Text, chunkPreviewRunes),
				ChunkIndex:  chunk.Index,
				TotalChunks: chunk.Total,
				ChunkType:   string(chunk.Type),
			},
		})
	}

	for start := 0; start < len(points); start += i.embeddingBatchSize {
		end := start + i.embeddingBatchSize
		if end > len(points) {
			end = len(points)
		}
		vectors, err := i.embedWithRetry(ctx, embedInputs[start:end])
		if err != nil {
			// 已写入的批次保留，返回已成功的分块数
			return start, err
		}
		for idx := range vectors {
			points[start+idx].Vector = vectors[idx]
		}
		if err := i.vector.Upsert(ctx, CollectionContent, points[start:end]); err != nil {
			return start, err
		}
	}
	return len(points), nil
}

// embedWithRetry 批量向量化，瞬时失败（限流、超时、5xx）重试一次。
func (i *Indexer) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		vectors, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
		}
		out = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
