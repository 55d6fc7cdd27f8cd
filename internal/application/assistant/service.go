// Package assistant 对话助手应用服务
package assistant

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/domain/repository"
	wfmodel "agent-smith-api/internal/workflow/model"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
)

const (
	defaultHistoryWindow = 20
	maxTitleRunes        = 80
)

// Orchestrator 单轮编排
type Orchestrator interface {
	Process(ctx context.Context, messages []wfmodel.Message) (wfmodel.Reply, error)
}

// ChatResult 一轮对话产生的两条发言
type ChatResult struct {
	UserTurn      *entity.Turn `json:"user_turn"`
	AssistantTurn *entity.Turn `json:"assistant_turn"`
}

// Service 对话助手服务
type Service struct {
	orchestrator  Orchestrator
	sessions      repository.SessionRepository
	turns         repository.TurnRepository
	tx            repository.Transactor
	historyWindow int
	newID         func() string
}

func NewService(
	orchestrator Orchestrator,
	sessions repository.SessionRepository,
	turns repository.TurnRepository,
	tx repository.Transactor,
	historyWindow int,
) *Service {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &Service{
		orchestrator:  orchestrator,
		sessions:      sessions,
		turns:         turns,
		tx:            tx,
		historyWindow: historyWindow,
		newID:         uuid.NewString,
	}
}

func (s *Service) requireStore() error {
	if s.sessions == nil || s.turns == nil {
		return apperrors.ErrServiceUnavailable.WithDetail("session store is not configured")
	}
	return nil
}

// Ask 无状态单轮问答，历史由调用方维护
func (s *Service) Ask(ctx context.Context, messages []wfmodel.Message) (wfmodel.Reply, error) {
	if s.orchestrator == nil {
		return wfmodel.Reply{}, apperrors.ErrServiceUnavailable.WithDetail("orchestrator is not configured")
	}
	return s.orchestrator.Process(ctx, messages)
}

// CreateSession 创建会话
func (s *Service) CreateSession(ctx context.Context, title string) (*entity.Session, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}

	session := &entity.Session{ID: s.newID(), Title: title}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create session")
	}
	return session, nil
}

func (s *Service) getSession(ctx context.Context, sessionID string) (*entity.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get session")
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

// Chat 在会话中追加用户发言并生成回复
//
// 编排在事务外执行，两条发言与会话时间戳在同一事务内写入。
func (s *Service) Chat(ctx context.Context, sessionID, content string) (*ChatResult, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if s.orchestrator == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("orchestrator is not configured")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("content is required")
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)

	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	history, err := s.turns.ListRecent(ctx, sessionID, s.historyWindow)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load history")
	}

	userTurn := entity.NewTurn(s.newID(), sessionID, entity.RoleUser, content)
	messages := make([]wfmodel.Message, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, wfmodel.Message{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, wfmodel.Message{Role: string(entity.RoleUser), Content: content})

	reply, err := s.orchestrator.Process(ctx, messages)
	if err != nil {
		return nil, err
	}

	assistantTurn := entity.NewTurn(s.newID(), sessionID, entity.RoleAssistant, reply.Content)
	assistantTurn.Tool = string(reply.Tool)
	assistantTurn.Query = reply.Query
	if !assistantTurn.CreatedAt.After(userTurn.CreatedAt) {
		assistantTurn.CreatedAt = userTurn.CreatedAt.Add(1)
	}

	err = s.withTx(ctx, func(txCtx context.Context) error {
		if err := s.turns.Create(txCtx, userTurn); err != nil {
			return err
		}
		if err := s.turns.Create(txCtx, assistantTurn); err != nil {
			return err
		}
		return s.sessions.Touch(txCtx, sessionID)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save turns")
	}

	logger.Info(ctx, "chat turn completed", "tool", reply.Tool)
	return &ChatResult{UserTurn: userTurn, AssistantTurn: assistantTurn}, nil
}

// History 返回会话最近的发言
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]*entity.Turn, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	turns, err := s.turns.ListRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load history")
	}
	return turns, nil
}

func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}
