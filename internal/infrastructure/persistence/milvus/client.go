// Package milvus 调查结论的向量索引
package milvus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agent-smith-api/internal/config"
	"agent-smith-api/pkg/logger"
)

const connectAttempts = 3

var tracer = otel.Tracer("milvus")

var errNotConfigured = errors.New("milvus client not configured")

type Client struct {
	milvus client.Client
	config *config.MilvusConfig
}

// NewClient 连接失败时指数退避重试，未启用时返回 (nil, nil)
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	mc := client.Config{Address: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}
	if cfg.User != "" {
		mc.Username, mc.Password = cfg.User, cfg.Password
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	conn, err := backoff.Retry(ctx, func() (client.Client, error) {
		return client.NewClient(ctx, mc)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(connectAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn(ctx, "milvus connect failed, retrying", "addr", mc.Address, "wait", wait.String(), "error", err.Error())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", mc.Address, err)
	}
	return &Client{milvus: conn, config: cfg}, nil
}

func (c *Client) Close() error {
	if c == nil || c.milvus == nil {
		return nil
	}
	return c.milvus.Close()
}

// HealthCheck 查询服务端状态
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.milvus == nil {
		return errNotConfigured
	}
	ctx, span := tracer.Start(ctx, "milvus.HealthCheck")
	defer span.End()

	state, err := c.milvus.CheckHealth(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	if !state.IsHealthy {
		return fmt.Errorf("milvus unhealthy: %v", state.Reasons)
	}
	return nil
}

// CollectionName <prefix>_<name>，无前缀时原样返回
func (c *Client) CollectionName(name string) string {
	if c.config.CollectionPrefix == "" {
		return name
	}
	return c.config.CollectionPrefix + "_" + name
}

func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	ctx, span := tracer.Start(ctx, "milvus.HasCollection", trace.WithAttributes(attribute.String("collection", name)))
	defer span.End()
	return c.milvus.HasCollection(ctx, c.CollectionName(name))
}

func (c *Client) LoadCollection(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "milvus.LoadCollection", trace.WithAttributes(attribute.String("collection", name)))
	defer span.End()
	return c.milvus.LoadCollection(ctx, c.CollectionName(name), false)
}
