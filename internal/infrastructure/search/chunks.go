package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/entity"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/tracer"
)

const providerChunks = "chunks"

// ChunkClient 片段检索 API 客户端
type ChunkClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
	retry      RetryPolicy
}

// NewChunkClient 创建片段检索客户端
func NewChunkClient(cfg config.ChunkSearchConfig, retry RetryPolicy, httpClient *http.Client) *ChunkClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChunkClient{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		retry:      retry,
	}
}

// Available 是否已配置地址与密钥
func (c *ChunkClient) Available() bool {
	return c != nil && c.url != "" && c.apiKey != ""
}

type chunkSearchResponse struct {
	Items []entity.Chunk `json:"items"`
}

// SearchChunks 按画像查询检索片段
func (c *ChunkClient) SearchChunks(ctx context.Context, q entity.ChunkQuery) (chunks []entity.Chunk, err error) {
	if !c.Available() {
		return nil, apperrors.ErrSearchUnavailable.WithDetail("chunk search is not configured")
	}
	if strings.TrimSpace(q.Query) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("chunk search query is empty")
	}
	if q.Include == nil {
		q.Include = map[string]any{}
	}

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chunk query: %w", err)
	}

	ctx, span := tracer.Start(ctx, "search.chunks")
	span.SetAttributes(
		attribute.String("search.query", q.Query),
		attribute.Int("search.size", q.Size),
		attribute.Int("search.page", q.Page),
	)
	start := time.Now()
	defer func() {
		observe(providerChunks, start, len(chunks), err)
		tracer.RecordError(span, err)
		span.End()
	}()

	chunks, err = withRetry(ctx, providerChunks, c.retry, func(ctx context.Context) ([]entity.Chunk, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if err := checkStatus(providerChunks, resp); err != nil {
			return nil, err
		}
		var out chunkSearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, backoffPermanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return out.Items, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "chunk search failed")
	}
	return chunks, nil
}
