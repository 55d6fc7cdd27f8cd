package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"agent-smith-api/internal/config"
)

// 支持的 embedding 提供方
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderTEI    = "tei"
)

// NewEmbedder 按 provider 创建 Embedder，空值按 openai 处理
func NewEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedding config is nil")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini:
		return NewGenAIEmbedder(ctx, cfg)
	case ProviderTEI:
		return NewTEIEmbedder(cfg)
	case ProviderOpenAI, "":
		return NewEinoEmbedder(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// NewEinoEmbedder 创建基于 Eino OpenAI 适配器的 Embedder
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	return embedder, nil
}

// ToFloat32 转换为 Milvus FloatVector 所需的精度
func ToFloat32(vectors [][]float64) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		f := make([]float32, len(vec))
		for j, v := range vec {
			f[j] = float32(v)
		}
		out[i] = f
	}
	return out
}
