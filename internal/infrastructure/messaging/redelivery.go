package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/metrics"
)

const pendingBatch = 20

// deliveries 条目当前的投递次数，查询失败按 0 处理
func (c *Consumer) deliveries(ctx context.Context, id string) int {
	res, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(res) == 0 {
		return 0
	}
	return int(res[0].RetryCount)
}

// redeliverDue 重新处理本消费者名下已等满退避时长的失败消息
func (c *Consumer) redeliverDue(ctx context.Context) {
	owned, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Start:    "-",
		End:      "+",
		Count:    pendingBatch,
		Consumer: c.name,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Error("failed to list pending messages", "error", err)
		}
		return
	}

	for _, p := range owned {
		n := int(p.RetryCount)
		if n >= c.retryLimit {
			for _, entry := range c.claimOne(ctx, p.ID, 0) {
				c.expire(ctx, entry, n)
			}
			continue
		}
		wait := c.backoff.Delay(n)
		if p.Idle < wait {
			continue
		}
		// XCLAIM 重置空闲时间并增加投递次数
		for _, entry := range c.claimOne(ctx, p.ID, wait) {
			c.handle(ctx, entry)
		}
	}
}

func (c *Consumer) claimOne(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	entries, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Consumer: c.name,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		logger.FromContext(ctx).Error("failed to claim pending message", "error", err, "entry_id", id)
		return nil
	}
	return entries
}

// reclaimAbandoned 接管其他消费者空闲超过 reclaimIdle 的消息，例如 worker 进程崩溃后遗留的
func (c *Consumer) reclaimAbandoned(ctx context.Context) {
	entries, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Consumer: c.name,
		MinIdle:  c.reclaimIdle,
		Start:    "0-0",
		Count:    pendingBatch,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Error("failed to reclaim stale messages", "error", err)
		}
		return
	}
	if len(entries) > 0 {
		logger.FromContext(ctx).Info("reclaimed stale messages", "count", len(entries))
	}

	for _, entry := range entries {
		// 认领本身计一次投递
		n := c.deliveries(ctx, entry.ID) - 1
		if n >= c.retryLimit {
			c.expire(ctx, entry, n)
			continue
		}
		c.handle(ctx, entry)
	}
}

// expire 超限但尚未写入死信流的条目
func (c *Consumer) expire(ctx context.Context, entry redis.XMessage, deliveries int) {
	msg, err := decodeMessage(entry)
	if err != nil {
		c.ack(ctx, entry.ID)
		return
	}
	c.deadLetter(ctx, entry.ID, msg, deliveries, errors.New("message exceeded max retries"))
}

// DeadLetter 死信流条目
type DeadLetter struct {
	OriginalStream string    `json:"original_stream"`
	EntryID        string    `json:"entry_id"`
	Message        *Message  `json:"data"`
	Error          string    `json:"error"`
	Deliveries     int       `json:"deliveries"`
	FailedAt       time.Time `json:"failed_at"`
}

// deadLetter 写入死信流并确认原条目；写入失败时保留在 PEL，下一轮再试
func (c *Consumer) deadLetter(ctx context.Context, entryID string, msg *Message, deliveries int, cause error) {
	dl := DeadLetter{
		OriginalStream: string(c.stream),
		EntryID:        entryID,
		Message:        msg,
		Error:          cause.Error(),
		Deliveries:     deliveries,
		FailedAt:       time.Now().UTC(),
	}
	data, err := encodeValue(dl)
	if err == nil {
		err = c.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: c.stream.DLQStream(),
			Values: map[string]any{entryField: data},
		}).Err()
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to write dead letter", "error", err, "message_id", msg.ID)
		return
	}
	c.observe("dead_lettered")
	c.ack(ctx, entryID)
}

// Monitor 每分钟上报消费组 lag，死信积压超过阈值时告警；随 ctx 结束
func (c *Consumer) Monitor(ctx context.Context, dlqThreshold int64) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reportLag(ctx)
			c.checkDeadLetters(ctx, dlqThreshold)
		}
	}
}

func (c *Consumer) reportLag(ctx context.Context) {
	groups, err := c.rdb.XInfoGroups(ctx, string(c.stream)).Result()
	if err != nil {
		return
	}
	for _, g := range groups {
		if g.Name == string(c.group) {
			metrics.RedisStreamLag.WithLabelValues(string(c.stream), g.Name).Set(float64(g.Lag))
		}
	}
}

func (c *Consumer) checkDeadLetters(ctx context.Context, threshold int64) {
	dlq := c.stream.DLQStream()
	n, err := c.rdb.XLen(ctx, dlq).Result()
	if err != nil {
		return
	}
	if n > threshold {
		logger.FromContext(ctx).Warn("dead letter backlog above threshold", "stream", dlq, "count", n, "threshold", threshold)
	}
}
