package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"agent-smith-api/internal/config"
)

const (
	defaultTEIModel     = "BAAI/bge-m3"
	defaultTEIBatchSize = 32
	errorBodyLimit      = 512
)

// TEIEmbedder 自建推理服务的 POST /embed 接口
type TEIEmbedder struct {
	endpoint   string
	model      string
	batchSize  int
	httpClient *http.Client
}

type teiRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type teiResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

var _ embedding.Embedder = (*TEIEmbedder)(nil)

// NewTEIEmbedder endpoint 不带路径时补 /embed
func NewTEIEmbedder(cfg *config.EmbeddingConfig) (*TEIEmbedder, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding endpoint: %w", err)
	}
	if u.Path == "" {
		u.Path = "/embed"
	}

	e := &TEIEmbedder{
		endpoint:   u.String(),
		model:      orDefault(cfg.Model, defaultTEIModel),
		batchSize:  cfg.BatchSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if e.batchSize <= 0 {
		e.batchSize = defaultTEIBatchSize
	}
	if e.httpClient.Timeout <= 0 {
		e.httpClient.Timeout = 30 * time.Second
	}
	return e, nil
}

func (e *TEIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	model := e.model
	if o := embedding.GetCommonOptions(&embedding.Options{}, opts...); o.Model != nil && *o.Model != "" {
		model = *o.Model
	}
	return embedInBatches(texts, e.batchSize, func(batch []string) ([][]float64, error) {
		return e.post(ctx, model, batch)
	})
}

func (e *TEIEmbedder) post(ctx context.Context, model string, texts []string) ([][]float64, error) {
	body, err := json.Marshal(teiRequest{Texts: texts, Model: model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("embedding request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out teiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	return out.Embeddings, nil
}

// embedInBatches 分批调用 fn 并校验每批返回数量，结果与输入同序
func embedInBatches(texts []string, size int, fn func(batch []string) ([][]float64, error)) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		batch := texts[start:min(start+size, len(texts))]
		vectors, err := fn(batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(batch), len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
