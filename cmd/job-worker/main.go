// Package main 调查任务执行器入口（job-worker）
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/infrastructure/messaging"
	einoobs "agent-smith-api/internal/observability/eino"
	"agent-smith-api/internal/wire"
	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/tracer"
)

const (
	dlqAlertThreshold = 10
	// 收到退出信号后等待进行中调查的最长时间，超时后取消
	drainTimeout = 2 * time.Minute
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal(context.Background(), "job-worker exited with error", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name + "-worker",
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize worker: %w", err)
	}
	defer cleanup()

	worker.Consumer.RegisterHandler(messaging.TypeInvestigationRun, func(ctx context.Context, msg *messaging.Message) error {
		var job messaging.InvestigationJob
		if err := msg.UnmarshalPayload(&job); err != nil {
			return err
		}
		if job.InvestigationID == "" {
			return errors.New("investigation_id is required")
		}
		return worker.Investigations.Execute(ctx, job.InvestigationID)
	})

	// 信号只停止拉取新消息，进行中的调查用独立的 context
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	if err := worker.Consumer.Start(workCtx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	go worker.Consumer.Monitor(ctx, dlqAlertThreshold)
	log.Info("job-worker started", "stream", messaging.StreamInvestigationJobs)

	<-ctx.Done()
	log.Info("job-worker shutting down")

	drained := make(chan struct{})
	go func() {
		worker.Consumer.Stop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		log.Warn("drain timeout exceeded, cancelling in-flight investigations")
		cancelWork()
		<-drained
	}
	return nil
}
