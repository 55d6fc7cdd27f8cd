package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/domain/repository"
)

type SessionRepository struct {
	client *Client
}

func NewSessionRepository(client *Client) *SessionRepository {
	return &SessionRepository{client: client}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var session entity.Session
	if err := db.First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Touch 刷新会话的 updated_at
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.SessionRepository.Touch")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Session{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

type TurnRepository struct {
	client *Client
}

func NewTurnRepository(client *Client) *TurnRepository {
	return &TurnRepository{client: client}
}

var _ repository.TurnRepository = (*TurnRepository)(nil)

func (r *TurnRepository) Create(ctx context.Context, turn *entity.Turn) error {
	ctx, span := tracer.Start(ctx, "postgres.TurnRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(turn).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create turn: %w", err)
	}
	return nil
}

// ListRecent 取最近 limit 条后按时间正序返回
func (r *TurnRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*entity.Turn, error) {
	ctx, span := tracer.Start(ctx, "postgres.TurnRepository.ListRecent")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	db := getDB(ctx, r.client.db)
	var turns []*entity.Turn
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
