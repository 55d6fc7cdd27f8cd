package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/entity"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/tracer"
)

const providerDocuments = "documents"

// DocumentClient 内部文档检索 API 客户端
type DocumentClient struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient *http.Client
	retry      RetryPolicy
}

// NewDocumentClient 创建文档检索客户端
func NewDocumentClient(cfg config.DocumentSearchConfig, retry RetryPolicy, httpClient *http.Client) *DocumentClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 5
	}
	return &DocumentClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limit:      limit,
		httpClient: httpClient,
		retry:      retry,
	}
}

// Available 是否已配置地址与密钥
func (c *DocumentClient) Available() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

type documentSearchResponse struct {
	Documents []entity.DocumentSummary `json:"documents"`
}

// Search 检索文档摘要，无结果时返回单条哨兵摘要
func (c *DocumentClient) Search(ctx context.Context, query string, limit int) (docs []entity.DocumentSummary, err error) {
	if !c.Available() {
		return nil, apperrors.ErrSearchUnavailable.WithDetail("document search is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("document search query is empty")
	}
	if limit <= 0 {
		limit = c.limit
	}

	ctx, span := tracer.Start(ctx, "search.documents")
	span.SetAttributes(attribute.String("search.query", query), attribute.Int("search.limit", limit))
	start := time.Now()
	defer func() {
		observe(providerDocuments, start, len(docs), err)
		tracer.RecordError(span, err)
		span.End()
	}()

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/search?" + params.Encode()

	var payload documentSearchResponse
	payload, err = withRetry(ctx, providerDocuments, c.retry, func(ctx context.Context) (documentSearchResponse, error) {
		var out documentSearchResponse
		return out, c.getJSON(ctx, endpoint, &out)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "document search failed")
	}

	for _, d := range payload.Documents {
		if strings.TrimSpace(d.DocID) == "" {
			continue
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		docs = []entity.DocumentSummary{entity.NoDocuments()}
	}
	return docs, nil
}

// Fetch 获取完整文档，不存在时返回 ErrDocumentNotFound
func (c *DocumentClient) Fetch(ctx context.Context, docID string) (doc *entity.Document, err error) {
	if !c.Available() {
		return nil, apperrors.ErrSearchUnavailable.WithDetail("document search is not configured")
	}
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("document id is empty")
	}

	ctx, span := tracer.Start(ctx, "search.documents.fetch")
	span.SetAttributes(attribute.String("document.id", docID))
	start := time.Now()
	defer func() {
		n := 0
		if doc != nil {
			n = 1
		}
		observe(providerDocuments, start, n, err)
		tracer.RecordError(span, err)
		span.End()
	}()

	endpoint := c.baseURL + "/documents/" + url.PathEscape(docID)
	doc, err = withRetry(ctx, providerDocuments, c.retry, func(ctx context.Context) (*entity.Document, error) {
		var out entity.Document
		if err := c.getJSON(ctx, endpoint, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, apperrors.ErrDocumentNotFound.WithDetail(docID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "document fetch failed")
	}
	if doc.DocID == "" {
		doc.DocID = docID
	}
	return doc, nil
}

func (c *DocumentClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(providerDocuments, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoffPermanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
