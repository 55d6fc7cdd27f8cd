package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由，未提供的处理器对应路由不注册
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 调查
	if h.Investigation != nil {
		investigations := v1.Group("/investigations")
		{
			investigations.POST("", h.Investigation.Create)
			investigations.GET("", h.Investigation.List)
			investigations.GET("/:id", h.Investigation.Get)
			investigations.POST("/:id/cancel", h.Investigation.Cancel)
		}
	}

	// 对话
	if h.Assistant != nil {
		v1.POST("/ask", h.Assistant.Ask)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.Assistant.CreateSession)
			sessions.POST("/:id/messages", h.Assistant.SendMessage)
			sessions.GET("/:id/messages", h.Assistant.History)
		}
	}

	// 检索
	if h.Search != nil {
		v1.GET("/search/web", h.Search.Web)
		v1.GET("/findings/similar", h.Search.SimilarFindings)
	}
}
