// Package router 提供 HTTP 路由配置
package router

import (
	"doc-qa-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	uploadHandler *handler.UploadHandler,
	searchHandler *handler.SearchHandler,
) {
	// 文档管理
	documents := v1.Group("/documents")
	{
		documents.POST("", uploadHandler.Upload)
		documents.GET("", uploadHandler.ListDocuments)
		documents.GET("/:did", uploadHandler.GetDocument)
		documents.DELETE("/:did", uploadHandler.DeleteDocument)
	}

	// 检索
	search := v1.Group("/search")
	{
		search.POST("", searchHandler.Search)
		search.POST("/context", searchHandler.Context)
	}
}
