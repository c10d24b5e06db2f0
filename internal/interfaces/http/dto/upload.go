// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"doc-qa-api/internal/domain/entity"
)

// DocumentResponse 上传文档响应
type DocumentResponse struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	Status        string    `json:"status"`
	ChunksIndexed int       `json:"chunks_indexed"`
	IndexError    string    `json:"index_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// ToDocumentResponse 实体转响应
func ToDocumentResponse(doc *entity.Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID,
		Filename:      doc.Filename,
		ContentType:   doc.ContentType,
		SizeBytes:     doc.SizeBytes,
		Status:        string(doc.Status),
		ChunksIndexed: doc.ChunksIndexed,
		IndexError:    doc.IndexError,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

// ToDocumentListResponse 实体列表转响应
func ToDocumentListResponse(docs []*entity.Document) DocumentListResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToDocumentResponse(doc))
	}
	return DocumentListResponse{Documents: out}
}
