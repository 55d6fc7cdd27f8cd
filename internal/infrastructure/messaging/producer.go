package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agent-smith-api/pkg/logger"
	pkgtracer "agent-smith-api/pkg/tracer"
)

var tracer = otel.Tracer("messaging")

const defaultMaxLen = 100_000

// Producer 向 Redis Stream 追加消息，流长度近似裁剪到 maxLen
type Producer struct {
	rdb    redis.Cmdable
	maxLen int64
}

func NewProducer(rdb redis.Cmdable, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{rdb: rdb, maxLen: maxLen}
}

// Publish 返回流条目 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := encodeValue(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{entryField: data},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// EnqueueInvestigation 投递 investigation.run，元数据携带请求 ID 与 trace 上下文
func (p *Producer) EnqueueInvestigation(ctx context.Context, id string, attempt int) error {
	msg, err := NewMessage(id, TypeInvestigationRun, InvestigationJob{InvestigationID: id, Attempt: attempt})
	if err != nil {
		return err
	}
	msg.SetMetadata("request_id", contextString(ctx, logger.RequestIDKey))
	msg.SetMetadata("trace_id", contextString(ctx, logger.TraceIDKey))
	pkgtracer.Inject(ctx, msg.Metadata)

	_, err = p.Publish(ctx, StreamInvestigationJobs, msg)
	return err
}

func contextString(ctx context.Context, key logger.ContextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}
