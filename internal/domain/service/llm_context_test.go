package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMScope(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, LLMScope{Workflow: "unknown", Provider: "unknown"}, LLMScopeFrom(ctx))

	ctx = WithLLMScope(ctx, "triage", "gemini")
	assert.Equal(t, LLMScope{Workflow: "triage", Provider: "gemini"}, LLMScopeFrom(ctx))

	// 空值沿用外层
	inner := WithLLMScope(ctx, "report", " ")
	assert.Equal(t, LLMScope{Workflow: "report", Provider: "gemini"}, LLMScopeFrom(inner))
}
