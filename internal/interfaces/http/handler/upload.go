// Package handler 提供 HTTP 请求处理器
package handler

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"doc-qa-api/internal/application/retrieval"
	"doc-qa-api/internal/config"
	"doc-qa-api/internal/domain/entity"
	"doc-qa-api/internal/domain/repository"
	"doc-qa-api/internal/interfaces/http/dto"
	"doc-qa-api/pkg/logger"
)

// UploadHandler 文档上传处理器
type UploadHandler struct {
	docRepo repository.DocumentRepository
	indexer *retrieval.Indexer
	vector  retrieval.VectorIndex
	storage config.StorageConfig
}

// NewUploadHandler 创建文档上传处理器
func NewUploadHandler(docRepo repository.DocumentRepository, indexer *retrieval.Indexer, vector retrieval.VectorIndex, storage config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		docRepo: docRepo,
		indexer: indexer,
		vector:  vector,
		storage: storage,
	}
}

// Upload 上传并索引文档
// @Summary 上传文档
// @Description 上传文档并同步建立向量索引，索引失败不影响文档记录
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文档文件"
// @Success 201 {object} dto.Response[dto.DocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/documents [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		dto.BadRequest(c, "missing file field: "+err.Error())
		return
	}
	if fileHeader.Filename == "" {
		dto.BadRequest(c, "filename is empty")
		return
	}
	if h.storage.MaxUploadSize > 0 && fileHeader.Size > h.storage.MaxUploadSize {
		dto.RequestTooLarge(c, fmt.Sprintf("file exceeds max upload size %d bytes", h.storage.MaxUploadSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error(ctx, "failed to open uploaded file", err)
		dto.InternalError(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error(ctx, "failed to read uploaded file", err)
		dto.InternalError(c, "failed to read uploaded file")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
	}

	storagePath, err := h.saveFile(fileHeader.Filename, data)
	if err != nil {
		logger.Error(ctx, "failed to persist uploaded file", err)
		dto.InternalError(c, "failed to persist uploaded file")
		return
	}

	doc := entity.NewDocument(fileHeader.Filename, contentType, int64(len(data)), storagePath)
	if err := h.docRepo.Create(ctx, doc); err != nil {
		logger.Error(ctx, "failed to create upload record", err)
		dto.InternalError(c, "failed to create upload record")
		return
	}

	// 同步索引：失败只降级文档状态，不回滚上传
	result := h.indexer.Index(ctx, retrieval.DocumentMeta{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt,
	}, data)

	switch {
	case result.Err == nil:
		doc.MarkIndexed(result.ChunksIndexed)
	case result.Success():
		doc.ChunksIndexed = result.ChunksIndexed
		doc.MarkPartial(result.Err.Error())
	default:
		doc.MarkFailed(result.Err.Error())
	}

	if err := h.docRepo.Update(ctx, doc); err != nil {
		logger.Error(ctx, "failed to update upload status", err, "document_id", doc.ID)
	}

	dto.Created(c, dto.ToDocumentResponse(doc))
}

// saveFile 将上传内容落盘，返回存储路径
func (h *UploadHandler) saveFile(filename string, data []byte) (string, error) {
	dir := h.storage.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// GetDocument 获取文档详情
// @Summary 获取文档详情
// @Tags Documents
// @Produce json
// @Param did path int true "文档 ID"
// @Success 200 {object} dto.Response[dto.DocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{did} [get]
func (h *UploadHandler) GetDocument(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := dto.BindDocumentID(c)
	if err != nil {
		dto.BadRequest(c, "invalid document id")
		return
	}

	doc, err := h.docRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get upload", err, "document_id", id)
		dto.InternalError(c, "failed to get document")
		return
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return
	}

	dto.Success(c, dto.ToDocumentResponse(doc))
}

// ListDocuments 获取文档列表
// @Summary 获取文档列表
// @Tags Documents
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.DocumentListResponse]
// @Router /api/v1/documents [get]
func (h *UploadHandler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()

	pageReq := dto.BindPage(c)

	var filter *repository.DocumentFilter
	if status := c.Query("status"); status != "" {
		filter = &repository.DocumentFilter{Status: entity.DocumentStatus(status)}
	}

	result, err := h.docRepo.List(ctx, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list uploads", err)
		dto.InternalError(c, "failed to list documents")
		return
	}

	resp := dto.ToDocumentListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// DeleteDocument 删除文档及其索引
// @Summary 删除文档
// @Description 删除文档记录、落盘文件与全部向量点位
// @Tags Documents
// @Produce json
// @Param did path int true "文档 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{did} [delete]
func (h *UploadHandler) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := dto.BindDocumentID(c)
	if err != nil {
		dto.BadRequest(c, "invalid document id")
		return
	}

	doc, err := h.docRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get upload", err, "document_id", id)
		dto.InternalError(c, "failed to delete document")
		return
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return
	}

	// 向量点位清理失败只告警，文档记录仍删除
	if h.vector != nil {
		for _, collection := range []string{retrieval.CollectionFilename, retrieval.CollectionContent} {
			if err := h.vector.DeleteByDocument(ctx, collection, id); err != nil {
				logger.Warn(ctx, "failed to delete vector points",
					"document_id", id, "collection", collection, "error", err)
			}
		}
	}

	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			logger.Warn(ctx, "failed to remove stored file", "path", doc.StoragePath, "error", err)
		}
	}

	if err := h.docRepo.Delete(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete upload", err, "document_id", id)
		dto.InternalError(c, "failed to delete document")
		return
	}

	dto.NoContent(c)
}
