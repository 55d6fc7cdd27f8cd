package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/pkg/logger"
)

// ReadThroughCache 读穿缓存，由 redis.Cache 实现
type ReadThroughCache interface {
	Fetch(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) ([]byte, error)
}

// WebSearcher 公网搜索
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]entity.WebResult, error)
}

// CachedWebSearcher 为公网搜索结果加一层缓存
// 缓存不可用时直接回源
type CachedWebSearcher struct {
	next  WebSearcher
	cache ReadThroughCache
	ttl   time.Duration
}

// NewCachedWebSearcher cache 为 nil 或 ttl<=0 时返回 next 本身
func NewCachedWebSearcher(next WebSearcher, cache ReadThroughCache, ttl time.Duration) WebSearcher {
	if cache == nil || ttl <= 0 {
		return next
	}
	return &CachedWebSearcher{next: next, cache: cache, ttl: ttl}
}

// Search 实现 WebSearcher
func (s *CachedWebSearcher) Search(ctx context.Context, query string, maxResults int) ([]entity.WebResult, error) {
	key := WebCacheKey(query, maxResults)

	var loaded []entity.WebResult
	var loadErr error
	raw, err := s.cache.Fetch(ctx, key, s.ttl, func(ctx context.Context) (any, error) {
		loaded, loadErr = s.next.Search(ctx, query, maxResults)
		return loaded, loadErr
	})
	if err != nil {
		if loadErr != nil {
			return nil, loadErr
		}
		logger.Warn(ctx, "web search cache unavailable, falling back", "error", err.Error())
		return s.next.Search(ctx, query, maxResults)
	}

	var results []entity.WebResult
	if err := json.Unmarshal(raw, &results); err != nil {
		logger.Warn(ctx, "failed to decode cached web results", "key", key, "error", err.Error())
		return s.next.Search(ctx, query, maxResults)
	}
	return results, nil
}

// WebCacheKey web:<sha1(query|n)>，命名空间由缓存添加
func WebCacheKey(query string, maxResults int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d", strings.TrimSpace(query), maxResults)))
	return "web:" + hex.EncodeToString(sum[:])
}
