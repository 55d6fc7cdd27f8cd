package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"agent-smith-api/internal/application/findings"
	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/interfaces/http/dto"
	workflowport "agent-smith-api/internal/workflow/port"
	apperrors "agent-smith-api/pkg/errors"
)

const (
	defaultWebResults = 5
	maxWebResults     = 20
)

// SimilarFinder 相似主记录检索
type SimilarFinder interface {
	Similar(ctx context.Context, query string, topK int) ([]entity.SimilarFinding, error)
}

// SearchHandler 检索处理器
type SearchHandler struct {
	web     workflowport.WebSearcher
	similar SimilarFinder
}

// NewSearchHandler 创建检索处理器，similar 可为 nil
func NewSearchHandler(web workflowport.WebSearcher, similar SimilarFinder) *SearchHandler {
	return &SearchHandler{web: web, similar: similar}
}

// Web 公网搜索
// @Summary 公网搜索
// @Tags Search
// @Produce json
// @Param q query string true "查询词"
// @Param n query int false "结果数量"
// @Success 200 {object} dto.Response[dto.WebSearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/search/web [get]
func (h *SearchHandler) Web(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		dto.BadRequest(c, "q is required")
		return
	}
	if h.web == nil {
		dto.FromError(c, apperrors.ErrSearchUnavailable)
		return
	}
	n := dto.BindIntQuery(c, "n", defaultWebResults)
	if n <= 0 {
		n = defaultWebResults
	}
	n = min(n, maxWebResults)

	results, err := h.web.Search(c.Request.Context(), query, n)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.WebSearchResponse{Query: query, Results: results})
}

// SimilarFindings 检索相似的历史主记录
// @Summary 相似主记录
// @Tags Search
// @Produce json
// @Param q query string true "查询文本"
// @Param k query int false "返回数量"
// @Success 200 {object} dto.Response[dto.SimilarFindingsResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/findings/similar [get]
func (h *SearchHandler) SimilarFindings(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		dto.BadRequest(c, "q is required")
		return
	}
	if h.similar == nil {
		dto.FromError(c, apperrors.ErrServiceUnavailable.WithDetail(findings.ErrIndexDisabled.Error()))
		return
	}

	items, err := h.similar.Similar(c.Request.Context(), query, dto.BindIntQuery(c, "k", 0))
	if err != nil {
		if errors.Is(err, findings.ErrIndexDisabled) {
			err = apperrors.ErrServiceUnavailable.WithDetail(err.Error())
		} else if !apperrors.IsAppError(err) {
			err = apperrors.Wrap(err, apperrors.CodeVectorDBError, "similar findings lookup failed")
		}
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.SimilarFindingsResponse{Query: query, Items: items})
}
