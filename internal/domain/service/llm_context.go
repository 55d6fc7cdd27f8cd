// Package service 定义跨层共享的领域服务契约
package service

import (
	"context"
	"strings"
)

const unknownScope = "unknown"

type llmScopeKey struct{}

// LLMScope 标识一次模型调用所属的工作流与供应商，用于指标与追踪标签
type LLMScope struct {
	Workflow string
	Provider string
}

// WithLLMScope 在 context 中记录工作流与供应商，空值沿用外层设置
func WithLLMScope(ctx context.Context, workflow, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	scope := LLMScopeFrom(ctx)
	if w := strings.TrimSpace(workflow); w != "" {
		scope.Workflow = w
	}
	if p := strings.TrimSpace(provider); p != "" {
		scope.Provider = p
	}
	return context.WithValue(ctx, llmScopeKey{}, scope)
}

// LLMScopeFrom 读取调用范围，缺失字段为 unknown
func LLMScopeFrom(ctx context.Context) LLMScope {
	scope := LLMScope{Workflow: unknownScope, Provider: unknownScope}
	if ctx == nil {
		return scope
	}
	if v, ok := ctx.Value(llmScopeKey{}).(LLMScope); ok {
		if v.Workflow != "" {
			scope.Workflow = v.Workflow
		}
		if v.Provider != "" {
			scope.Provider = v.Provider
		}
	}
	return scope
}
