//go:build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"agent-smith-api/internal/application/assistant"
	"agent-smith-api/internal/application/findings"
	"agent-smith-api/internal/application/investigation"
	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/repository"
	"agent-smith-api/internal/infrastructure/llm"
	"agent-smith-api/internal/infrastructure/messaging"
	"agent-smith-api/internal/infrastructure/persistence/postgres"
	"agent-smith-api/internal/infrastructure/persistence/redis"
	"agent-smith-api/internal/interfaces/http/handler"
	"agent-smith-api/internal/interfaces/http/middleware"
	"agent-smith-api/internal/interfaces/http/router"
	"agent-smith-api/internal/workflow/chain"
	workflowport "agent-smith-api/internal/workflow/port"
	workflowprompt "agent-smith-api/internal/workflow/prompt"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		InvestigationRepoSet,
		SessionRepoSet,
		RedisSet,
		CacheSet,
		MessagingSet,
		MilvusSet,
		FindingsSet,
		LLMSet,
		InvestigationSet,
		AssistantSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化调查任务执行器
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		PostgresSet,
		InvestigationRepoSet,
		RedisSet,
		MessagingSet,
		ProvideInvestigationConsumer,
		MilvusSet,
		FindingsSet,
		LLMSet,
		InvestigationSet,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化建表与向量集合所需的依赖
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		MilvusSet,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 客户端与事务管理
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
)

var InvestigationRepoSet = wire.NewSet(
	postgres.NewInvestigationRepository,
	wire.Bind(new(repository.InvestigationRepository), new(*postgres.InvestigationRepository)),
)

var SessionRepoSet = wire.NewSet(
	postgres.NewSessionRepository,
	postgres.NewTurnRepository,
	wire.Bind(new(repository.SessionRepository), new(*postgres.SessionRepository)),
	wire.Bind(new(repository.TurnRepository), new(*postgres.TurnRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
)

// CacheSet 搜索缓存与接口限流
var CacheSet = wire.NewSet(
	ProvideSearchCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(investigation.Queue), new(*messaging.Producer)),
)

// MilvusSet 可选 Milvus（不可达时不阻塞启动）
var MilvusSet = wire.NewSet(
	ProvideMilvusClientOptional,
	ProvideMilvusRepositoryOptional,
)

// FindingsSet 主记录索引（Embedder 或 Milvus 缺失时禁用）
var FindingsSet = wire.NewSet(
	ProvideFindingsVectorRepositoryOptional,
	ProvideEmbedderOptional,
	ProvideFindingsIndexer,
	wire.Bind(new(investigation.FindingsIndexer), new(*findings.Indexer)),
)

var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	workflowprompt.NewRegistry,
	ProvideRetryPolicy,
)

var InvestigationSet = wire.NewSet(
	ProvideChunkSearcher,
	ProvideInvestigationPipeline,
	wire.Bind(new(investigation.Pipeline), new(*chain.InvestigationPipeline)),
	ProvideInvestigationOptions,
	investigation.NewService,
)

var AssistantSet = wire.NewSet(
	ProvideWebSearcher,
	ProvideDocumentSearcher,
	ProvideDocumentAgent,
	ProvideOrchestrator,
	wire.Bind(new(assistant.Orchestrator), new(*chain.Orchestrator)),
	ProvideAssistantService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewInvestigationHandler,
	handler.NewAssistantHandler,
	handler.NewSearchHandler,
	wire.Bind(new(handler.InvestigationService), new(*investigation.Service)),
	wire.Bind(new(handler.AssistantService), new(*assistant.Service)),
	wire.Bind(new(handler.SimilarFinder), new(*findings.Indexer)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
