package model

import "time"

// LLMUsageMeta 一次模型调用的用量
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}

// Add 累加另一次调用的 token 用量
func (m *LLMUsageMeta) Add(other LLMUsageMeta) {
	m.PromptTokens += other.PromptTokens
	m.CompletionTokens += other.CompletionTokens
	if other.GeneratedAt.After(m.GeneratedAt) {
		m.GeneratedAt = other.GeneratedAt
	}
	if m.Model == "" {
		m.Model = other.Model
	}
}
