package dto

import "agent-smith-api/internal/domain/entity"

// WebSearchResponse 公网搜索结果
type WebSearchResponse struct {
	Query   string             `json:"query"`
	Results []entity.WebResult `json:"results"`
}

// SimilarFindingsResponse 相似主记录
type SimilarFindingsResponse struct {
	Query string                  `json:"query"`
	Items []entity.SimilarFinding `json:"items"`
}
