package redis

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RateLimiter 基于有序集合的滑动窗口计数，多实例共享同一窗口
type RateLimiter struct {
	rdb redis.Cmdable
	seq atomic.Uint64
	now func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return newRateLimiter(client.rdb)
}

func newRateLimiter(rdb redis.Cmdable) *RateLimiter {
	return &RateLimiter{rdb: rdb, now: time.Now}
}

// Allow 记录本次请求并判断窗口内请求数是否超过 limit
// 被拒绝的请求同样计入窗口
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow", trace.WithAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
	))
	defer span.End()

	now := l.now().UnixNano()
	// 同一纳秒内的多次请求需要不同 member
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(l.seq.Add(1), 10)

	var count *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(now-window.Nanoseconds(), 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})
		count = pipe.ZCard(ctx, key)
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	allowed := count.Val() <= int64(limit)
	span.SetAttributes(
		attribute.Int64("ratelimit.count", count.Val()),
		attribute.Bool("ratelimit.allowed", allowed),
	)
	return allowed, nil
}

// BuildRateLimitKey <prefix>:<client>:<route>
func BuildRateLimitKey(prefix, client, route string) string {
	return strings.Join([]string{prefix, client, route}, ":")
}
