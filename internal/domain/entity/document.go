// Package entity 定义领域实体
package entity

import (
	"time"
)

// DocumentStatus 文档索引状态
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusIndexed DocumentStatus = "indexed"
	DocumentStatusPartial DocumentStatus = "partial"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// Document 上传文档实体
type Document struct {
	ID            int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Filename      string         `json:"filename" gorm:"type:varchar(512);not null"`
	ContentType   string         `json:"content_type" gorm:"type:varchar(255)"`
	SizeBytes     int64          `json:"size_bytes"`
	StoragePath   string         `json:"-" gorm:"type:varchar(1024)"`
	Status        DocumentStatus `json:"status" gorm:"type:varchar(50);default:'pending'"`
	ChunksIndexed int            `json:"chunks_indexed" gorm:"default:0"`
	IndexError    string         `json:"index_error,omitempty" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "uploads"
}

// NewDocument 创建新文档
func NewDocument(filename, contentType string, sizeBytes int64, storagePath string) *Document {
	now := time.Now()
	return &Document{
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		StoragePath: storagePath,
		Status:      DocumentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkIndexed 标记索引完成
func (d *Document) MarkIndexed(chunks int) {
	d.Status = DocumentStatusIndexed
	d.ChunksIndexed = chunks
	d.IndexError = ""
	d.UpdatedAt = time.Now()
}

// MarkPartial 标记部分索引完成（仅文件名入索引）
func (d *Document) MarkPartial(reason string) {
	d.Status = DocumentStatusPartial
	d.IndexError = reason
	d.UpdatedAt = time.Now()
}

// MarkFailed 标记索引失败
func (d *Document) MarkFailed(reason string) {
	d.Status = DocumentStatusFailed
	d.IndexError = reason
	d.UpdatedAt = time.Now()
}
