// Package redis 搜索缓存、限流计数与任务流共用的 Redis 连接
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"agent-smith-api/internal/config"
	"agent-smith-api/pkg/logger"
)

const connectTimeout = 5 * time.Second

var tracer = otel.Tracer("redis")

type Client struct {
	rdb *redis.Client
}

// NewClient 建立连接并 Ping 一次，失败时关闭连接池
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	logger.Info(ctx, "redis connected", "addr", addr, "db", cfg.DB)
	return &Client{rdb: rdb}, nil
}

// Redis 底层客户端，供 Streams 生产者与消费者使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck Ping 并检查连接池是否出现超时
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if stats := c.rdb.PoolStats(); stats.TotalConns > 0 && stats.IdleConns == 0 && stats.Timeouts > 0 {
		logger.Warn(ctx, "redis pool saturated", "total_conns", stats.TotalConns, "timeouts", stats.Timeouts)
	}
	return nil
}
