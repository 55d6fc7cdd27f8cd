// Package messaging 提供基于 Redis Stream 的任务队列
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream 流名称
type Stream string

// StreamInvestigationJobs 调查任务流
const StreamInvestigationJobs Stream = "stream:investigation:jobs"

// DLQStream 死信流名称
func (s Stream) DLQStream() string { return "dlq:" + string(s) }

// ConsumerGroup 消费者组名称
type ConsumerGroup string

// ConsumerGroupInvestigationWorker 调查 worker 消费者组
const ConsumerGroupInvestigationWorker ConsumerGroup = "cg:investigation-worker"

// TypeInvestigationRun 执行一次调查
const TypeInvestigationRun = "investigation.run"

// InvestigationJob investigation.run 载荷
type InvestigationJob struct {
	InvestigationID string `json:"investigation_id"`
	Attempt         int    `json:"attempt"`
}

// entryField 流条目中存放消息 JSON 的字段
const entryField = "data"

// Message 队列消息
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewMessage(id, msgType string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		Payload:   raw,
		Metadata:  map[string]string{},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 空值不写入
func (m *Message) SetMetadata(key, value string) {
	if value == "" {
		return
	}
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	m.Metadata[key] = value
}

func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

func encodeValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMessage(entry redis.XMessage) (*Message, error) {
	raw, ok := entry.Values[entryField].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s has no %q field", entry.ID, entryField)
	}
	msg := new(Message)
	if err := json.Unmarshal([]byte(raw), msg); err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, err)
	}
	return msg, nil
}
