package repository

import (
	"context"

	"agent-smith-api/internal/domain/entity"
)

// SessionRepository 会话仓储接口
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Touch(ctx context.Context, id string) error
}

// TurnRepository 会话发言仓储接口
type TurnRepository interface {
	Create(ctx context.Context, turn *entity.Turn) error
	// ListRecent 返回最近 limit 条发言，按时间正序
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*entity.Turn, error)
}
