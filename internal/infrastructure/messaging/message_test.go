package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/pkg/logger"
)

func TestBackoffDelay(t *testing.T) {
	cfg := DefaultBackoffConfig()
	assert.Equal(t, time.Second, cfg.Delay(0))
	assert.Equal(t, 2*time.Second, cfg.Delay(1))
	assert.Equal(t, 4*time.Second, cfg.Delay(2))
	assert.Equal(t, time.Minute, cfg.Delay(20))

	flat := BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 0}
	assert.Equal(t, time.Second, flat.Delay(5))
}

func TestMessagePayloadAndMetadata(t *testing.T) {
	msg, err := NewMessage("inv-1", TypeInvestigationRun, &InvestigationJob{InvestigationID: "inv-1", Attempt: 2})
	require.NoError(t, err)

	msg.SetMetadata("request_id", "")
	assert.Empty(t, msg.GetMetadata("request_id"))
	msg.SetMetadata("request_id", "req-9")
	assert.Equal(t, "req-9", msg.GetMetadata("request_id"))

	var job InvestigationJob
	require.NoError(t, msg.UnmarshalPayload(&job))
	assert.Equal(t, "inv-1", job.InvestigationID)
	assert.Equal(t, 2, job.Attempt)

	assert.Equal(t, "dlq:stream:investigation:jobs", StreamInvestigationJobs.DLQStream())
}

func TestDecodeMessage(t *testing.T) {
	_, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]any{}})
	assert.Error(t, err)

	_, err = decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]any{"data": "{"}})
	assert.Error(t, err)

	msg, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]any{
		"data": `{"id":"inv-1","type":"investigation.run","payload":{"investigation_id":"inv-1"}}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, TypeInvestigationRun, msg.Type)
}

func TestContextString(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-1")
	assert.Equal(t, "req-1", contextString(ctx, logger.RequestIDKey))
	assert.Empty(t, contextString(ctx, logger.TraceIDKey))
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Stream: StreamInvestigationJobs, Group: ConsumerGroupInvestigationWorker})
	assert.Equal(t, 3, c.retryLimit)
	assert.Equal(t, 1, c.concurrency)
	assert.Equal(t, 5*time.Second, c.blockTimeout)
	assert.Equal(t, 5*time.Minute, c.reclaimIdle)
	assert.Equal(t, DefaultBackoffConfig(), c.backoff)
}
