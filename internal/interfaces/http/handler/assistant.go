package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"agent-smith-api/internal/application/assistant"
	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/interfaces/http/dto"
	wfmodel "agent-smith-api/internal/workflow/model"
)

// AssistantService 对话助手应用服务
type AssistantService interface {
	Ask(ctx context.Context, messages []wfmodel.Message) (wfmodel.Reply, error)
	CreateSession(ctx context.Context, title string) (*entity.Session, error)
	Chat(ctx context.Context, sessionID, content string) (*assistant.ChatResult, error)
	History(ctx context.Context, sessionID string, limit int) ([]*entity.Turn, error)
}

// AssistantHandler 对话处理器
type AssistantHandler struct {
	svc AssistantService
}

// NewAssistantHandler 创建对话处理器
func NewAssistantHandler(svc AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// Ask 无状态问答
// @Summary 无状态问答
// @Description 由调用方携带完整历史，最后一条须为用户消息
// @Tags Assistant
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "对话历史"
// @Success 200 {object} dto.Response[dto.AskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/ask [post]
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	reply, err := h.svc.Ask(c.Request.Context(), req.Messages)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToAskResponse(reply))
}

// CreateSession 创建会话
// @Summary 创建会话
// @Tags Assistant
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest false "会话标题"
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions [post]
func (h *AssistantHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, err.Error())
			return
		}
	}
	session, err := h.svc.CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Created(c, dto.ToSessionResponse(session))
}

// SendMessage 会话内发言
// @Summary 会话内发言
// @Tags Assistant
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param body body dto.SendMessageRequest true "发言内容"
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{id}/messages [post]
func (h *AssistantHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.Chat(c.Request.Context(), dto.BindID(c), req.Content)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ChatResponse{
		UserTurn:      dto.ToTurnResponse(res.UserTurn),
		AssistantTurn: dto.ToTurnResponse(res.AssistantTurn),
	})
}

// History 会话历史
// @Summary 会话历史
// @Tags Assistant
// @Produce json
// @Param id path string true "会话 ID"
// @Param limit query int false "条数上限"
// @Success 200 {object} dto.Response[[]dto.TurnResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{id}/messages [get]
func (h *AssistantHandler) History(c *gin.Context) {
	turns, err := h.svc.History(c.Request.Context(), dto.BindID(c), dto.BindIntQuery(c, "limit", 0))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToTurnResponses(turns))
}
