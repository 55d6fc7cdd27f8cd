package dto

import (
	"time"

	"agent-smith-api/internal/domain/entity"
)

// CreateInvestigationRequest 提交调查请求
type CreateInvestigationRequest struct {
	Query        string         `json:"query" binding:"required"`
	Size         int            `json:"size"`
	ContextLines *int           `json:"context_lines"`
	Include      map[string]any `json:"include"`
}

// InvestigationResponse 调查详情
type InvestigationResponse struct {
	ID           string                      `json:"id"`
	Status       entity.InvestigationStatus  `json:"status"`
	Profile      entity.InvestigationProfile `json:"profile"`
	Result       *entity.InvestigationResult `json:"result,omitempty"`
	ErrorMessage string                      `json:"error_message,omitempty"`
	RetryCount   int                         `json:"retry_count"`
	DurationMs   int64                       `json:"duration_ms,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	StartedAt    *time.Time                  `json:"started_at,omitempty"`
	CompletedAt  *time.Time                  `json:"completed_at,omitempty"`
}

// InvestigationSummary 列表项，不含结果正文
type InvestigationSummary struct {
	ID         string                     `json:"id"`
	Status     entity.InvestigationStatus `json:"status"`
	Query      string                     `json:"query"`
	RetryCount int                        `json:"retry_count"`
	DurationMs int64                      `json:"duration_ms,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// InvestigationListResponse 调查列表
type InvestigationListResponse struct {
	Items  []InvestigationSummary               `json:"items"`
	Counts map[entity.InvestigationStatus]int64 `json:"counts,omitempty"`
}

// ToInvestigationResponse 转换调查详情
func ToInvestigationResponse(inv *entity.Investigation) InvestigationResponse {
	return InvestigationResponse{
		ID:           inv.ID,
		Status:       inv.Status,
		Profile:      inv.Profile,
		Result:       inv.Result,
		ErrorMessage: inv.ErrorMessage,
		RetryCount:   inv.RetryCount,
		DurationMs:   inv.DurationMs,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		StartedAt:    inv.StartedAt,
		CompletedAt:  inv.CompletedAt,
	}
}

// ToInvestigationSummaries 转换调查列表
func ToInvestigationSummaries(items []*entity.Investigation) []InvestigationSummary {
	out := make([]InvestigationSummary, 0, len(items))
	for _, inv := range items {
		out = append(out, InvestigationSummary{
			ID:         inv.ID,
			Status:     inv.Status,
			Query:      inv.Profile.Query,
			RetryCount: inv.RetryCount,
			DurationMs: inv.DurationMs,
			CreatedAt:  inv.CreatedAt,
		})
	}
	return out
}
