// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"doc-qa-api/internal/domain/entity"
	"doc-qa-api/internal/domain/repository"
)

// DocumentRepository 上传文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建上传文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) querier(ctx context.Context) (Querier, error) {
	sqlDB, err := r.client.SqlDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return getQuerier(ctx, sqlDB), nil
}

// Create 创建文档记录
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	q, err := r.querier(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO uploads (filename, content_type, size_bytes, storage_path, status, chunks_indexed, index_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRowContext(ctx, query,
		doc.Filename, doc.ContentType, doc.SizeBytes, doc.StoragePath,
		doc.Status, doc.ChunksIndexed, doc.IndexError,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create upload: %w", err)
	}

	return nil
}

// GetByID 根据 ID 获取文档
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, filename, content_type, size_bytes, storage_path, status, chunks_indexed, index_error, created_at, updated_at
		FROM uploads
		WHERE id = $1
	`

	var doc entity.Document
	err = q.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.StoragePath,
		&doc.Status, &doc.ChunksIndexed, &doc.IndexError, &doc.CreatedAt, &doc.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	return &doc, nil
}

// Update 更新文档记录
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Update")
	defer span.End()

	q, err := r.querier(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE uploads
		SET filename = $1, content_type = $2, size_bytes = $3, storage_path = $4,
			status = $5, chunks_indexed = $6, index_error = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`

	err = q.QueryRowContext(ctx, query,
		doc.Filename, doc.ContentType, doc.SizeBytes, doc.StoragePath,
		doc.Status, doc.ChunksIndexed, doc.IndexError, doc.ID,
	).Scan(&doc.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update upload: %w", err)
	}

	return nil
}

// Delete 删除文档记录
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	q, err := r.querier(ctx)
	if err != nil {
		return err
	}

	query := `DELETE FROM uploads WHERE id = $1`
	_, err = q.ExecContext(ctx, query, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	return nil
}

// List 获取文档列表
func (r *DocumentRepository) List(ctx context.Context, filter *repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.List")
	defer span.End()

	q, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	// 构建查询条件
	whereClause := "1=1"
	args := []interface{}{}
	argIdx := 1

	if filter != nil {
		if filter.Status != "" {
			whereClause += fmt.Sprintf(" AND status = $%d", argIdx)
			args = append(args, filter.Status)
			argIdx++
		}
		if filter.Filename != "" {
			whereClause += fmt.Sprintf(" AND filename ILIKE $%d", argIdx)
			args = append(args, "%"+filter.Filename+"%")
			argIdx++
		}
	}

	// 获取总数
	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM uploads WHERE %s`, whereClause)
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}

	// 获取列表
	query := fmt.Sprintf(`
		SELECT id, filename, content_type, size_bytes, storage_path, status, chunks_indexed, index_error, created_at, updated_at
		FROM uploads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	args = append(args, pagination.Limit(), pagination.Offset())

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		var doc entity.Document
		if err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.StoragePath,
			&doc.Status, &doc.ChunksIndexed, &doc.IndexError, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		docs = append(docs, &doc)
	}

	return repository.NewPagedResult(docs, total, pagination), nil
}
