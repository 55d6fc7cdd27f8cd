package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/metrics"
	pkgtracer "agent-smith-api/pkg/tracer"
)

// MessageHandler 处理一条消息，返回错误时消息留在 PEL 等待重投
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig 消费者配置，零值字段取默认
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Concurrency   int
	Backoff       BackoffConfig
}

// Consumer Redis Stream 消费者
//
// 每轮循环依次：重投本消费者名下已过退避期的消息、按间隔接管其他消费者遗留的消息、
// 读取新消息并以有限并发分发。投递次数达到 RetryLimit 的消息写入死信流后确认。
type Consumer struct {
	rdb           redis.Cmdable
	stream        Stream
	group         ConsumerGroup
	name          string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	concurrency   int
	backoff       BackoffConfig

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewConsumer(rdb redis.Cmdable, cfg ConsumerConfig) *Consumer {
	c := &Consumer{
		rdb:           rdb,
		stream:        cfg.Stream,
		group:         cfg.Group,
		name:          cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		retryLimit:    cfg.RetryLimit,
		concurrency:   cfg.Concurrency,
		backoff:       cfg.Backoff,
		handlers:      map[string]MessageHandler{},
	}
	if c.blockTimeout <= 0 {
		c.blockTimeout = 5 * time.Second
	}
	if c.claimInterval <= 0 {
		c.claimInterval = 30 * time.Second
	}
	if c.retryLimit <= 0 {
		c.retryLimit = 3
	}
	if c.concurrency <= 0 {
		c.concurrency = 1
	}
	if c.backoff.Initial <= 0 {
		c.backoff = DefaultBackoffConfig()
	}
	if c.name == "" {
		c.name = "consumer-1"
	}
	c.reclaimIdle = max(5*time.Minute, 2*c.backoff.Max)
	return c
}

// RegisterHandler 按消息类型注册处理器，重复注册覆盖
func (c *Consumer) RegisterHandler(msgType string, h MessageHandler) {
	c.mu.Lock()
	c.handlers[msgType] = h
	c.mu.Unlock()
}

func (c *Consumer) handlerFor(msgType string) MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers[msgType]
}

// Start 确保消费者组存在后在后台消费
//
// 处理器使用 ctx，Stop 只中断读取，已取出的消息会处理完。
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return errors.New("consumer already running")
	}

	err := c.rdb.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.group, err)
	}

	readCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx, readCtx)
	}()
	return nil
}

// Stop 停止读取并等待进行中的消息处理完成
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}

func (c *Consumer) loop(ctx, readCtx context.Context) {
	log := logger.FromContext(ctx).With("stream", c.stream, "group", c.group, "consumer", c.name)
	log.Info("consumer started")
	defer log.Info("consumer stopped")

	var nextSweep time.Time
	for readCtx.Err() == nil {
		c.redeliverDue(ctx)
		if now := time.Now(); !now.Before(nextSweep) {
			c.reclaimAbandoned(ctx)
			nextSweep = now.Add(c.claimInterval)
		}

		entries, err := c.readNew(readCtx)
		switch {
		case err == nil:
			c.dispatch(ctx, entries)
		case errors.Is(err, redis.Nil), readCtx.Err() != nil:
		default:
			log.Error("failed to read from stream", "error", err)
			select {
			case <-readCtx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) readNew(ctx context.Context) ([]redis.XMessage, error) {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    string(c.group),
		Consumer: c.name,
		Streams:  []string{string(c.stream), ">"},
		Count:    int64(c.concurrency),
		Block:    c.blockTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}
	var entries []redis.XMessage
	for _, s := range res {
		entries = append(entries, s.Messages...)
	}
	return entries, nil
}

func (c *Consumer) dispatch(ctx context.Context, entries []redis.XMessage) {
	if len(entries) == 1 {
		c.handle(ctx, entries[0])
		return
	}
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, entry := range entries {
		g.Go(func() error {
			c.handle(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Consumer) observe(outcome string) {
	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), outcome).Inc()
}

// handle 处理一条已投递给本消费者的条目
func (c *Consumer) handle(ctx context.Context, entry redis.XMessage) {
	msg, err := decodeMessage(entry)
	if err != nil {
		logger.FromContext(ctx).Error("dropping malformed stream entry", "error", err)
		c.observe("invalid")
		c.ack(ctx, entry.ID)
		return
	}

	ctx, span := tracer.Start(pkgtracer.Extract(ctx, msg.Metadata), "consumer.handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", entry.ID),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()
	ctx = withMessageContext(ctx, msg)
	log := logger.FromContext(ctx)

	h := c.handlerFor(msg.Type)
	if h == nil {
		log.Warn("no handler for message type", "type", msg.Type)
		c.observe("unhandled")
		c.ack(ctx, entry.ID)
		return
	}

	started := time.Now()
	if err := h(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observe("failed")

		deliveries := c.deliveries(ctx, entry.ID)
		if deliveries >= c.retryLimit {
			log.Warn("message exhausted retries", "message_id", msg.ID, "deliveries", deliveries, "error", err)
			c.deadLetter(ctx, entry.ID, msg, deliveries, err)
			return
		}
		log.Error("handler failed, message left pending",
			"message_id", msg.ID,
			"deliveries", deliveries,
			"retry_in", c.backoff.Delay(deliveries),
			"error", err,
		)
		return
	}

	log.Debug("message handled", "message_id", msg.ID, "elapsed", time.Since(started))
	c.observe("success")
	c.ack(ctx, entry.ID)
}

func withMessageContext(ctx context.Context, msg *Message) context.Context {
	if v := msg.GetMetadata("request_id"); v != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, v)
	}
	if v := msg.GetMetadata("trace_id"); v != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, v)
	}
	if msg.Type == TypeInvestigationRun {
		ctx = logger.WithContext(ctx, logger.InvestigationIDKey, msg.ID)
	}
	return ctx
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.FromContext(ctx).Error("failed to ack message", "error", err, "entry_id", id)
	}
}
