// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"doc-qa-api/internal/domain/entity"
)

// DocumentFilter 文档过滤条件
type DocumentFilter struct {
	Status   entity.DocumentStatus
	Filename string
}

// DocumentRepository 上传文档仓储接口
type DocumentRepository interface {
	// Create 创建文档记录
	Create(ctx context.Context, doc *entity.Document) error

	// GetByID 根据 ID 获取文档
	GetByID(ctx context.Context, id int64) (*entity.Document, error)

	// Update 更新文档记录
	Update(ctx context.Context, doc *entity.Document) error

	// Delete 删除文档记录
	Delete(ctx context.Context, id int64) error

	// List 获取文档列表
	List(ctx context.Context, filter *DocumentFilter, pagination Pagination) (*PagedResult[*entity.Document], error)
}
