package dto

import (
	"time"

	"agent-smith-api/internal/domain/entity"
	wfmodel "agent-smith-api/internal/workflow/model"
)

// AskRequest 无状态问答请求
type AskRequest struct {
	Messages []wfmodel.Message `json:"messages" binding:"required,min=1,dive"`
}

// AskResponse 问答回复
type AskResponse struct {
	Content string             `json:"content"`
	Tool    wfmodel.ToolChoice `json:"tool"`
	Query   string             `json:"query,omitempty"`
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// SessionResponse 会话
type SessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SendMessageRequest 会话内发言
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// TurnResponse 单条发言
type TurnResponse struct {
	ID        string      `json:"id"`
	Role      entity.Role `json:"role"`
	Content   string      `json:"content"`
	Tool      string      `json:"tool,omitempty"`
	Query     string      `json:"query,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ChatResponse 一轮对话
type ChatResponse struct {
	UserTurn      TurnResponse `json:"user_turn"`
	AssistantTurn TurnResponse `json:"assistant_turn"`
}

func ToAskResponse(r wfmodel.Reply) AskResponse {
	return AskResponse{Content: r.Content, Tool: r.Tool, Query: r.Query}
}

func ToSessionResponse(s *entity.Session) SessionResponse {
	return SessionResponse{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func ToTurnResponse(t *entity.Turn) TurnResponse {
	return TurnResponse{
		ID:        t.ID,
		Role:      t.Role,
		Content:   t.Content,
		Tool:      t.Tool,
		Query:     t.Query,
		CreatedAt: t.CreatedAt,
	}
}

// ToTurnResponses 转换发言列表
func ToTurnResponses(turns []*entity.Turn) []TurnResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, ToTurnResponse(t))
	}
	return out
}
