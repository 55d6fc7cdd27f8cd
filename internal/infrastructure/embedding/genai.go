package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"

	"agent-smith-api/internal/config"
)

const (
	defaultGenAIModel = "gemini-embedding-001"
	genAITaskType     = "RETRIEVAL_DOCUMENT"
	genAIBatchSize    = 100
)

// GenAIEmbedder Gemini embedding，实现 eino Embedder
type GenAIEmbedder struct {
	client    *genai.Client
	model     string
	dimension int32
}

var _ embedding.Embedder = (*GenAIEmbedder)(nil)

func NewGenAIEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*GenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGenAIModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model, dimension: int32(cfg.Dimension)}, nil
}

// EmbedStrings 每批最多 100 条
func (e *GenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	model := e.model
	if o := embedding.GetCommonOptions(&embedding.Options{}, opts...); o.Model != nil && *o.Model != "" {
		model = *o.Model
	}

	return embedInBatches(texts, genAIBatchSize, func(batch []string) ([][]float64, error) {
		contents := make([]*genai.Content, len(batch))
		for i, text := range batch {
			contents[i] = genai.NewContentFromText(text, genai.RoleUser)
		}
		cfg := &genai.EmbedContentConfig{TaskType: genAITaskType}
		if e.dimension > 0 {
			cfg.OutputDimensionality = genai.Ptr(e.dimension)
		}

		result, err := e.client.Models.EmbedContent(ctx, model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("genai embed failed: %w", err)
		}
		out := make([][]float64, len(result.Embeddings))
		for i, emb := range result.Embeddings {
			vec := make([]float64, len(emb.Values))
			for j, v := range emb.Values {
				vec[j] = float64(v)
			}
			out[i] = vec
		}
		return out, nil
	})
}
