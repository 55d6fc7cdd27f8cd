// Package dto HTTP 请求与响应结构
package dto

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"agent-smith-api/internal/domain/repository"
)

// BindPage 读取 page、page_size，越界值按仓储层规则收敛
func BindPage(c *gin.Context) repository.Pagination {
	return repository.NewPagination(
		BindIntQuery(c, "page", 1),
		BindIntQuery(c, "page_size", repository.DefaultPageSize),
	)
}

// BindID 路径参数 :id
func BindID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}

// BindIntQuery 缺省或无法解析时返回 defaultVal
func BindIntQuery(c *gin.Context, key string, defaultVal int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}
