// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"doc-qa-api/internal/application/retrieval"
	"doc-qa-api/internal/interfaces/http/dto"
	"doc-qa-api/pkg/logger"
)

// SearchHandler 检索处理器
type SearchHandler struct {
	engine *retrieval.Engine
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(engine *retrieval.Engine) *SearchHandler {
	return &SearchHandler{
		engine: engine,
	}
}

// Search 混合检索
// @Summary 混合检索
// @Description 多变体向量检索 + 文件名召回 + RRF 融合，可选交叉编码器重排
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索请求"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		dto.BadRequest(c, "query is empty")
		return
	}

	out, err := h.engine.Search(ctx, req.ToSearchInput())
	if err != nil {
		logger.Error(ctx, "search failed", err, "query", req.Query)
		dto.InternalError(c, "search failed")
		return
	}

	dto.Success(c, dto.ToSearchResponse(out))
}

// Context 构建召回上下文
// @Summary 构建召回上下文
// @Description 检索并拼装可直接注入提示词的上下文块
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.ContextRequest true "上下文构建请求"
// @Success 200 {object} dto.Response[dto.ContextResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/search/context [post]
func (h *SearchHandler) Context(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		dto.BadRequest(c, "query is empty")
		return
	}

	out, err := h.engine.Search(ctx, retrieval.SearchInput{
		Query:       req.Query,
		Limit:       req.Limit,
		Rerank:      req.Rerank,
		NumVariants: req.NumVariants,
	})
	if err != nil {
		logger.Error(ctx, "context search failed", err, "query", req.Query)
		dto.InternalError(c, "search failed")
		return
	}

	dto.Success(c, dto.ContextResponse{
		Context: retrieval.BuildPromptContext(out.Hits, req.MaxHits, req.MaxRunes),
		Mode:    string(out.Mode),
		Hits:    len(out.Hits),
	})
}
