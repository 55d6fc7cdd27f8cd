// Package search 提供外部检索源客户端：公网搜索、文档检索与片段检索
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"agent-smith-api/internal/config"
	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/metrics"
)

const maxErrorBody = 512

// RetryPolicy 出站请求重试策略，第 n 次重试前等待 BaseDelay*n
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewRetryPolicy 从配置构建重试策略
func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	p := RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.BaseDelay}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// linearBackOff 线性递增的退避
type linearBackOff struct {
	base time.Duration
	n    int64
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.base * time.Duration(b.n)
}

func (b *linearBackOff) Reset() { b.n = 0 }

// StatusError 非 2xx 响应
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable 5xx 与 429 可重试
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// withRetry 执行 op，可重试错误按策略重试，其余错误立即返回
func withRetry[T any](ctx context.Context, provider string, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return res, err
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return res, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(&linearBackOff{base: policy.BaseDelay}),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.SearchRetries.WithLabelValues(provider).Inc()
			logger.Warn(ctx, "search attempt failed, retrying",
				"provider", provider,
				"attempt", attempt,
				"wait", wait.String(),
				"error", err.Error(),
			)
		}),
	)
}

// backoffPermanent 标记不可重试的错误，例如响应体无法解析
func backoffPermanent(err error) error {
	return backoff.Permanent(err)
}

// checkStatus 读取错误响应体片段并转换为 StatusError
func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}

// observe 记录一次检索调用的指标
func observe(provider string, start time.Time, results int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchCallTotal.WithLabelValues(provider, status).Inc()
	metrics.SearchCallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResults.WithLabelValues(provider).Observe(float64(results))
	}
}
