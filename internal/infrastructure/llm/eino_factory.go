// Package llm 按配置构建 Eino ChatModel
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"agent-smith-api/internal/config"
)

const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// EinoFactory 按供应商名惰性构建并缓存 ChatModel，构建失败不缓存
type EinoFactory struct {
	cfg config.LLMConfig

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{cfg: cfg.LLM, models: map[string]model.BaseChatModel{}}
}

// Get 空名称取 default_provider
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.cfg.DefaultProvider
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.models[name]; ok {
		return m, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}
	m, err := buildChatModel(ctx, providerKind(name, pc.Kind), pc)
	if err != nil {
		return nil, fmt.Errorf("build chat model %s: %w", name, err)
	}
	f.models[name] = m
	return m, nil
}

// Register 覆盖同名供应商，测试与 CLI 注入用
func (f *EinoFactory) Register(name string, m model.BaseChatModel) {
	f.mu.Lock()
	f.models[name] = m
	f.mu.Unlock()
}

func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// providerKind 未配置 kind 时名称含 gemini 视为 Gemini，其余走 OpenAI 兼容协议
func providerKind(name, kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "" {
		return kind
	}
	if strings.Contains(strings.ToLower(name), KindGemini) {
		return KindGemini
	}
	return KindOpenAI
}

func buildChatModel(ctx context.Context, kind string, pc config.ProviderConfig) (model.BaseChatModel, error) {
	switch kind {
	case KindGemini:
		return NewGeminiChatModel(ctx, GeminiConfig{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			Timeout:     pc.Timeout,
		})
	case KindOpenAI:
		temperature := float32(pc.Temperature)
		oc := &openai.ChatModelConfig{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Temperature: &temperature,
			Timeout:     pc.Timeout,
		}
		if pc.MaxTokens > 0 {
			oc.MaxTokens = &pc.MaxTokens
		}
		return openai.NewChatModel(ctx, oc)
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}
