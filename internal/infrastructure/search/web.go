package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/entity"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/tracer"
)

const (
	providerWeb      = "web"
	maxWebPageBytes  = 2 << 20
	duckRedirectPath = "/l/"
)

// WebClient 基于 DuckDuckGo HTML 页面的公网搜索
type WebClient struct {
	endpoint   string
	userAgent  string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
}

// NewWebClient 创建公网搜索客户端
// 相邻两次请求至少间隔 MinInterval
func NewWebClient(cfg config.WebSearchConfig, retry RetryPolicy, httpClient *http.Client) *WebClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 8
	}
	return &WebClient{
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		maxResults: maxResults,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		retry:      retry,
	}
}

// Search 执行搜索，无结果时返回单条哨兵结果
func (c *WebClient) Search(ctx context.Context, query string, maxResults int) (results []entity.WebResult, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("web search query is empty")
	}
	if maxResults <= 0 {
		maxResults = c.maxResults
	}

	ctx, span := tracer.Start(ctx, "search.web")
	span.SetAttributes(attribute.String("search.query", query), attribute.Int("search.max_results", maxResults))
	start := time.Now()
	defer func() {
		observe(providerWeb, start, len(results), err)
		tracer.RecordError(span, err)
		span.End()
	}()

	results, err = withRetry(ctx, providerWeb, c.retry, func(ctx context.Context) ([]entity.WebResult, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.fetch(ctx, query, maxResults)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "web search failed")
	}
	if len(results) == 0 {
		results = []entity.WebResult{entity.NoWebResults()}
	}
	return results, nil
}

func (c *WebClient) fetch(ctx context.Context, query string, maxResults int) ([]entity.WebResult, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid web search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(providerWeb, resp); err != nil {
		return nil, err
	}

	return ParseDuckDuckGoHTML(io.LimitReader(resp.Body, maxWebPageBytes), maxResults)
}

// ParseDuckDuckGoHTML 从结果页提取最多 maxResults 条结果
// 结果块为 div.result，标题与链接取自 a.result__a，摘要取自 .result__snippet
func ParseDuckDuckGoHTML(r io.Reader, maxResults int) ([]entity.WebResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []entity.WebResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if res, ok := extractResult(n); ok {
				results = append(results, res)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) (entity.WebResult, bool) {
	var res entity.WebResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				res.URL = resolveRedirect(attr(n, "href"))
				res.Title = textContent(n)
			case hasClass(n, "result__snippet"):
				res.Snippet = textContent(n)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return res, res.URL != "" && res.Title != ""
}

// resolveRedirect 还原 //duckduckgo.com/l/?uddg=<encoded> 跳转链接
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, duckRedirectPath) {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(s)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
