package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"agent-smith-api/pkg/logger"
)

// AccessLog 请求日志中间件，skipPaths 按前缀匹配（健康检查、指标端点）
func AccessLog(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skipPaths {
			if p != "" && strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.Warn(ctx, "http request failed", attrs...)
		default:
			logger.Info(ctx, "http request", attrs...)
		}
	}
}
