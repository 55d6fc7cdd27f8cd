// Package investigation 调查应用服务：提交、执行、查询与取消
package investigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/domain/repository"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/metrics"
)

const (
	defaultSize          = 30
	defaultMaxSize       = 100
	defaultContextLines  = 1
	defaultMaxQueryRunes = 512
	defaultTimeout       = 10 * time.Minute
)

// Pipeline 调查流水线
type Pipeline interface {
	Run(ctx context.Context, profile entity.InvestigationProfile) (*entity.InvestigationResult, error)
}

// Queue 异步任务投递
type Queue interface {
	EnqueueInvestigation(ctx context.Context, id string, attempt int) error
}

// FindingsIndexer 主记录索引
type FindingsIndexer interface {
	Enabled() bool
	IndexFindings(ctx context.Context, investigationID, query string, findings []entity.Finding) (int, error)
}

// Options 服务参数，零值使用默认
type Options struct {
	DefaultSize   int
	MaxSize       int
	ContextLines  *int
	MaxQueryRunes int
	MaxRetries    int
	Timeout       time.Duration
	IndexFindings bool
}

func (o Options) withDefaults() Options {
	if o.DefaultSize <= 0 {
		o.DefaultSize = defaultSize
	}
	if o.MaxSize <= 0 {
		o.MaxSize = defaultMaxSize
	}
	if o.ContextLines == nil || *o.ContextLines < 0 {
		lines := defaultContextLines
		o.ContextLines = &lines
	}
	if o.MaxQueryRunes <= 0 {
		o.MaxQueryRunes = defaultMaxQueryRunes
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// SubmitOptions 单次调查参数，零值使用服务默认
type SubmitOptions struct {
	Size         int
	ContextLines *int
	Include      map[string]any
}

// Service 调查应用服务
//
// repo 为空时仅支持 RunSync（CLI 进程内模式）。
type Service struct {
	repo     repository.InvestigationRepository
	tx       repository.Transactor
	pipeline Pipeline
	queue    Queue
	index    FindingsIndexer
	opts     Options
	newID    func() string
}

func NewService(
	repo repository.InvestigationRepository,
	tx repository.Transactor,
	pipeline Pipeline,
	queue Queue,
	index FindingsIndexer,
	opts Options,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		pipeline: pipeline,
		queue:    queue,
		index:    index,
		opts:     opts.withDefaults(),
		newID:    uuid.NewString,
	}
}

// BuildProfile 校验查询并合并默认参数
func (s *Service) BuildProfile(query string, opts SubmitOptions) (entity.InvestigationProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return entity.InvestigationProfile{}, apperrors.ErrInvalidParam.WithDetail("query is required")
	}
	if utf8.RuneCountInString(query) > s.opts.MaxQueryRunes {
		return entity.InvestigationProfile{}, apperrors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("query must be at most %d characters", s.opts.MaxQueryRunes))
	}

	size := opts.Size
	if size <= 0 {
		size = s.opts.DefaultSize
	}
	if size > s.opts.MaxSize {
		size = s.opts.MaxSize
	}
	contextLines := *s.opts.ContextLines
	if opts.ContextLines != nil {
		if *opts.ContextLines < 0 {
			return entity.InvestigationProfile{}, apperrors.ErrInvalidParam.WithDetail("context_lines must be >= 0")
		}
		contextLines = *opts.ContextLines
	}

	profile := entity.NewInvestigationProfile(query, size, contextLines)
	if len(opts.Include) > 0 {
		profile.Include = opts.Include
	}
	return profile, nil
}

func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTransaction(ctx, fn)
}

func (s *Service) requireRepo() error {
	if s.repo == nil {
		return apperrors.ErrServiceUnavailable.WithDetail("investigation store is not configured")
	}
	return nil
}

// Submit 持久化 pending 调查并投递到任务流
func (s *Service) Submit(ctx context.Context, query string, opts SubmitOptions) (*entity.Investigation, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("job queue is not configured")
	}
	profile, err := s.BuildProfile(query, opts)
	if err != nil {
		return nil, err
	}

	inv := entity.NewInvestigation(s.newID(), profile)
	ctx = logger.WithContext(ctx, logger.InvestigationIDKey, inv.ID)
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create investigation")
	}

	if err := s.queue.EnqueueInvestigation(ctx, inv.ID, inv.RetryCount); err != nil {
		logger.Error(ctx, "failed to enqueue investigation", err)
		inv.Fail("enqueue failed: " + err.Error())
		if uerr := s.repo.Update(ctx, inv); uerr != nil {
			logger.Error(ctx, "failed to mark investigation failed", uerr)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeQueueError, "failed to enqueue investigation")
	}

	logger.Info(ctx, "investigation submitted", "query", profile.Query, "size", profile.Size)
	return inv, nil
}

// RunSync 进程内执行调查；配置了存储时同时持久化
func (s *Service) RunSync(ctx context.Context, query string, opts SubmitOptions) (*entity.Investigation, error) {
	if s.pipeline == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("investigation pipeline is not configured")
	}
	profile, err := s.BuildProfile(query, opts)
	if err != nil {
		return nil, err
	}

	inv := entity.NewInvestigation(s.newID(), profile)
	ctx = logger.WithContext(ctx, logger.InvestigationIDKey, inv.ID)
	_ = inv.Start()
	if s.repo != nil {
		if err := s.repo.Create(ctx, inv); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create investigation")
		}
	}

	result, runErr := s.run(ctx, inv.Profile)
	if runErr != nil {
		inv.Fail(runErr.Error())
	} else {
		inv.Complete(result)
	}
	metrics.InvestigationTotal.WithLabelValues(string(inv.Status)).Inc()

	if s.repo != nil {
		if err := s.repo.Update(ctx, inv); err != nil {
			logger.Error(ctx, "failed to persist investigation", err)
		}
	}
	if runErr != nil {
		return inv, runErr
	}
	s.indexFindings(ctx, inv)
	return inv, nil
}

func (s *Service) run(ctx context.Context, profile entity.InvestigationProfile) (*entity.InvestigationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.pipeline.Run(ctx, profile)
}

// Execute worker 入口
//
// 终态调查直接跳过，保证重复投递幂等；失败且未超过重试上限时回到 pending 并返回错误，
// 由消息流按退避重新投递。
func (s *Service) Execute(ctx context.Context, id string) error {
	if err := s.requireRepo(); err != nil {
		return err
	}
	if s.pipeline == nil {
		return apperrors.ErrServiceUnavailable.WithDetail("investigation pipeline is not configured")
	}
	ctx = logger.WithContext(ctx, logger.InvestigationIDKey, id)

	var inv *entity.Investigation
	err := s.withTx(ctx, func(txCtx context.Context) error {
		cur, err := s.repo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return apperrors.ErrInvestigationNotFound.WithDetail(id)
		}
		if cur.Status.IsTerminal() {
			return nil
		}
		// running 说明上次执行中断后被重新认领，沿用原开始时间
		if cur.Status == entity.InvestigationPending {
			if err := cur.Start(); err != nil {
				return err
			}
			if err := s.repo.Update(txCtx, cur); err != nil {
				return err
			}
		}
		inv = cur
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvestigationNotFound) {
			logger.Warn(ctx, "investigation not found, dropping job")
			return nil
		}
		return err
	}
	if inv == nil {
		logger.Info(ctx, "investigation already finished, skipping")
		return nil
	}

	result, runErr := s.run(ctx, inv.Profile)

	var retry bool
	err = s.withTx(ctx, func(txCtx context.Context) error {
		cur, err := s.repo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if cur == nil || cur.Status == entity.InvestigationCancelled {
			return nil
		}
		if runErr != nil {
			cur.Fail(runErr.Error())
			if cur.CanRetry(s.opts.MaxRetries) {
				cur.Retry()
				retry = true
			}
		} else {
			cur.Complete(result)
		}
		inv = cur
		return s.repo.Update(txCtx, cur)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to persist investigation")
	}

	if inv.Status.IsTerminal() {
		metrics.InvestigationTotal.WithLabelValues(string(inv.Status)).Inc()
	}
	if runErr != nil {
		logger.Error(ctx, "investigation failed", runErr, "retry", retry, "retry_count", inv.RetryCount)
		if retry {
			return runErr
		}
		return nil
	}
	if inv.Status != entity.InvestigationCompleted {
		logger.Info(ctx, "investigation cancelled while running")
		return nil
	}

	logger.Info(ctx, "investigation completed",
		"findings", len(inv.Result.Findings),
		"duration_ms", inv.DurationMs,
	)
	s.indexFindings(ctx, inv)
	return nil
}

// indexFindings 写入主记录索引，失败只记录日志
func (s *Service) indexFindings(ctx context.Context, inv *entity.Investigation) {
	if !s.opts.IndexFindings || s.index == nil || !s.index.Enabled() || inv.Result == nil {
		return
	}
	n, err := s.index.IndexFindings(ctx, inv.ID, inv.Profile.Query, inv.Result.Findings)
	if err != nil {
		logger.Warn(ctx, "failed to index findings", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "findings indexed", "count", n)
	}
}

// Get 获取调查
func (s *Service) Get(ctx context.Context, id string) (*entity.Investigation, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get investigation")
	}
	if inv == nil {
		return nil, apperrors.ErrInvestigationNotFound
	}
	return inv, nil
}

// List 分页列出调查
func (s *Service) List(ctx context.Context, filter *repository.InvestigationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Investigation], error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, filter, pagination)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list investigations")
	}
	return out, nil
}

// StatusCounts 按状态统计调查数量
func (s *Service) StatusCounts(ctx context.Context) (map[entity.InvestigationStatus]int64, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	out, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to count investigations")
	}
	return out, nil
}

// Cancel 取消 pending/running 调查
func (s *Service) Cancel(ctx context.Context, id string) (*entity.Investigation, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}

	var out *entity.Investigation
	err := s.withTx(ctx, func(txCtx context.Context) error {
		inv, err := s.repo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get investigation")
		}
		if inv == nil {
			return apperrors.ErrInvestigationNotFound
		}
		if err := inv.Cancel(); err != nil {
			return apperrors.ErrInvalidTransition.WithDetail(err.Error())
		}
		if err := s.repo.Update(txCtx, inv); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update investigation")
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.InvestigationTotal.WithLabelValues(string(entity.InvestigationCancelled)).Inc()
	return out, nil
}
