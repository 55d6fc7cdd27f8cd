package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"agent-smith-api/pkg/metrics"
)

// Cache 带命名空间的 JSON 读穿缓存
// 键格式 <namespace>:<key>，namespace 同时作为命中率指标标签
type Cache struct {
	rdb       redis.Cmdable
	namespace string
	group     singleflight.Group
}

func NewCache(client *Client, namespace string) *Cache {
	return newCache(client.rdb, namespace)
}

func newCache(rdb redis.Cmdable, namespace string) *Cache {
	if namespace == "" {
		namespace = "cache"
	}
	return &Cache{rdb: rdb, namespace: namespace}
}

func (c *Cache) key(k string) string {
	return c.namespace + ":" + k
}

// Get 未命中时 ok 为 false 且 err 为 nil
func (c *Cache) Get(ctx context.Context, key string) (val []byte, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "cache.Get", trace.WithAttributes(attribute.String("cache.key", c.key(key))))
	defer span.End()

	val, err = c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.observe(span, "miss")
		return nil, false, nil
	case err != nil:
		span.RecordError(err)
		c.observe(span, "error")
		return nil, false, err
	}
	c.observe(span, "hit")
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), val, ttl).Err()
}

// Fetch 命中直接返回；未命中时同一 key 的并发请求只调用一次 load，结果按 JSON 写回
// load 的错误原样返回且不缓存；Redis 读失败时返回错误，由调用方决定是否回源
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) ([]byte, error) {
	val, ok, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return val, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(loaded)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s entry: %w", c.namespace, err)
		}
		if err := c.Set(ctx, key, data, ttl); err != nil {
			trace.SpanFromContext(ctx).RecordError(err)
		}
		return data, nil
	})
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) observe(span trace.Span, result string) {
	span.SetAttributes(attribute.String("cache.result", result))
	metrics.CacheLookups.WithLabelValues(c.namespace, result).Inc()
}
