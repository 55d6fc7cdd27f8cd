package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"agent-smith-api/internal/application/investigation"
	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/domain/repository"
	"agent-smith-api/internal/interfaces/http/dto"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
)

// InvestigationService 调查应用服务
type InvestigationService interface {
	Submit(ctx context.Context, query string, opts investigation.SubmitOptions) (*entity.Investigation, error)
	RunSync(ctx context.Context, query string, opts investigation.SubmitOptions) (*entity.Investigation, error)
	Get(ctx context.Context, id string) (*entity.Investigation, error)
	List(ctx context.Context, filter *repository.InvestigationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Investigation], error)
	StatusCounts(ctx context.Context) (map[entity.InvestigationStatus]int64, error)
	Cancel(ctx context.Context, id string) (*entity.Investigation, error)
}

// InvestigationHandler 调查处理器
type InvestigationHandler struct {
	svc InvestigationService
}

// NewInvestigationHandler 创建调查处理器
func NewInvestigationHandler(svc InvestigationService) *InvestigationHandler {
	return &InvestigationHandler{svc: svc}
}

// Create 提交调查
// @Summary 提交调查
// @Description 默认异步排队返回 202；sync=true 时进程内执行并返回完整结果
// @Tags Investigations
// @Accept json
// @Produce json
// @Param sync query bool false "同步执行"
// @Param body body dto.CreateInvestigationRequest true "调查参数"
// @Success 200 {object} dto.Response[dto.InvestigationResponse]
// @Success 202 {object} dto.Response[dto.InvestigationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/investigations [post]
func (h *InvestigationHandler) Create(c *gin.Context) {
	var req dto.CreateInvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	opts := investigation.SubmitOptions{
		Size:         req.Size,
		ContextLines: req.ContextLines,
		Include:      req.Include,
	}

	if sync, _ := strconv.ParseBool(c.Query("sync")); sync {
		inv, err := h.svc.RunSync(ctx, req.Query, opts)
		if err != nil {
			if inv != nil {
				logger.Warn(ctx, "sync investigation failed", "investigation_id", inv.ID, "error", err.Error())
			}
			dto.FromError(c, err)
			return
		}
		dto.Success(c, dto.ToInvestigationResponse(inv))
		return
	}

	inv, err := h.svc.Submit(ctx, req.Query, opts)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Accepted(c, dto.ToInvestigationResponse(inv))
}

// Get 获取调查详情
// @Summary 获取调查详情
// @Tags Investigations
// @Produce json
// @Param id path string true "调查 ID"
// @Success 200 {object} dto.Response[dto.InvestigationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/investigations/{id} [get]
func (h *InvestigationHandler) Get(c *gin.Context) {
	inv, err := h.svc.Get(c.Request.Context(), dto.BindID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToInvestigationResponse(inv))
}

// List 分页列出调查
// @Summary 列出调查
// @Tags Investigations
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "状态过滤"
// @Param q query string false "查询词过滤"
// @Success 200 {object} dto.Response[dto.InvestigationListResponse]
// @Router /v1/investigations [get]
func (h *InvestigationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	page := dto.BindPage(c)

	filter := &repository.InvestigationFilter{
		Status: entity.InvestigationStatus(c.Query("status")),
		Query:  c.Query("q"),
	}
	result, err := h.svc.List(ctx, filter, page)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	counts, err := h.svc.StatusCounts(ctx)
	if err != nil {
		// 统计失败不影响列表
		logger.Warn(ctx, "failed to count investigations", "error", err.Error())
		counts = nil
	}

	dto.SuccessWithPage(c, dto.InvestigationListResponse{
		Items:  dto.ToInvestigationSummaries(result.Items),
		Counts: counts,
	}, dto.NewPageMeta(result.Page, result.PageSize, result.Total, result.TotalPages))
}

// Cancel 取消调查
// @Summary 取消调查
// @Tags Investigations
// @Produce json
// @Param id path string true "调查 ID"
// @Success 200 {object} dto.Response[dto.InvestigationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/investigations/{id}/cancel [post]
func (h *InvestigationHandler) Cancel(c *gin.Context) {
	id := dto.BindID(c)
	if id == "" {
		dto.FromError(c, apperrors.ErrInvalidParam.WithDetail("id is required"))
		return
	}
	inv, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToInvestigationResponse(inv))
}
