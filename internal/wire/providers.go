// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"agent-smith-api/internal/application/assistant"
	"agent-smith-api/internal/application/findings"
	"agent-smith-api/internal/application/investigation"
	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/repository"
	infraembedding "agent-smith-api/internal/infrastructure/embedding"
	"agent-smith-api/internal/infrastructure/llm"
	"agent-smith-api/internal/infrastructure/messaging"
	"agent-smith-api/internal/infrastructure/persistence/milvus"
	"agent-smith-api/internal/infrastructure/persistence/postgres"
	"agent-smith-api/internal/infrastructure/persistence/redis"
	"agent-smith-api/internal/infrastructure/search"
	"agent-smith-api/internal/interfaces/http/handler"
	"agent-smith-api/internal/workflow/chain"
	workflowport "agent-smith-api/internal/workflow/port"
	workflowprompt "agent-smith-api/internal/workflow/prompt"
	"agent-smith-api/pkg/logger"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSearchCache 公网搜索结果缓存
func ProvideSearchCache(client *redis.Client) *redis.Cache {
	return redis.NewCache(client, "search")
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideInvestigationConsumer 提供调查任务消费者，消费者名取主机名与进程号
func ProvideInvestigationConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	group := messaging.ConsumerGroupInvestigationWorker
	if rs.ConsumerGroupPrefix != "" {
		group = messaging.ConsumerGroup(rs.ConsumerGroupPrefix) + group
	}
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamInvestigationJobs,
		Group:         group,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Concurrency:   rs.Concurrency,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideMilvusClientOptional Milvus 不可达时返回 nil，向量功能降级
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, findings index disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideMilvusRepositoryOptional(client *milvus.Client, cfg *config.Config) *milvus.Repository {
	if client == nil {
		return nil
	}
	return milvus.NewRepository(client, cfg.Embedding.Dimension)
}

func ProvideFindingsVectorRepositoryOptional(repo *milvus.Repository) findings.VectorRepository {
	if repo == nil {
		return nil
	}
	return milvus.NewFindingsVectorRepository(repo)
}

func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config) einoembedding.Embedder {
	embedder, err := infraembedding.NewEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedding not available, findings index disabled", "error", err.Error())
		return nil
	}
	return embedder
}

// ProvideFindingsIndexer 向量存储或 Embedder 缺失时索引处于禁用状态
func ProvideFindingsIndexer(cfg *config.Config, embedder einoembedding.Embedder, vectorRepo findings.VectorRepository) *findings.Indexer {
	return findings.NewIndexer(embedder, vectorRepo, cfg.Embedding.BatchSize)
}

func ProvideRetryPolicy(cfg *config.Config) search.RetryPolicy {
	return search.NewRetryPolicy(cfg.Search.Retry)
}

// ProvideWebSearcher 公网搜索，带 Redis 结果缓存
func ProvideWebSearcher(cfg *config.Config, retry search.RetryPolicy, cache *redis.Cache) workflowport.WebSearcher {
	web := search.NewWebClient(cfg.Search.Web, retry, nil)
	if cache == nil {
		return web
	}
	return search.NewCachedWebSearcher(web, cache, cfg.Search.CacheTTL)
}

func ProvideDocumentSearcher(cfg *config.Config, retry search.RetryPolicy) workflowport.DocumentSearcher {
	return search.NewDocumentClient(cfg.Search.Documents, retry, nil)
}

func ProvideChunkSearcher(cfg *config.Config, retry search.RetryPolicy) workflowport.ChunkSearcher {
	return search.NewChunkClient(cfg.Search.Chunks, retry, nil)
}

func ProvideInvestigationPipeline(cfg *config.Config, chunks workflowport.ChunkSearcher, factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry) *chain.InvestigationPipeline {
	return chain.NewInvestigationPipeline(chunks, factory, prompts, chain.InvestigationOptions{
		Provider:          cfg.Investigation.Provider,
		TriageConcurrency: cfg.Investigation.TriageConcurrency,
	})
}

func ProvideDocumentAgent(cfg *config.Config, docs workflowport.DocumentSearcher, factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry) *chain.DocumentAgent {
	return chain.NewDocumentAgent(docs, factory, prompts, cfg.Assistant.Provider, cfg.Assistant.MaxDocuments)
}

func ProvideOrchestrator(cfg *config.Config, web workflowport.WebSearcher, docs *chain.DocumentAgent, factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry) *chain.Orchestrator {
	return chain.NewOrchestrator(web, docs, factory, prompts, cfg.Assistant.Provider)
}

func ProvideInvestigationOptions(cfg *config.Config) investigation.Options {
	ic := cfg.Investigation
	contextLines := ic.ContextLines
	return investigation.Options{
		DefaultSize:   ic.DefaultSize,
		MaxSize:       ic.MaxSize,
		ContextLines:  &contextLines,
		MaxQueryRunes: ic.MaxQueryRunes,
		MaxRetries:    ic.MaxRetries,
		Timeout:       ic.Timeout,
		IndexFindings: ic.IndexFindings,
	}
}

func ProvideAssistantService(
	cfg *config.Config,
	orchestrator assistant.Orchestrator,
	sessions repository.SessionRepository,
	turns repository.TurnRepository,
	tx repository.Transactor,
) *assistant.Service {
	return assistant.NewService(orchestrator, sessions, turns, tx, cfg.Assistant.HistoryWindow)
}

// ProvideHealthHandler PostgreSQL 与 Redis 为必需依赖，Milvus 未启用时标记 disabled
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client, mc *milvus.Client) *handler.HealthHandler {
	deps := []handler.Dependency{
		{Name: "postgres", Required: true},
		{Name: "redis", Required: true},
		{Name: "milvus"},
	}
	if pg != nil {
		deps[0].Checker = pg
	}
	if rc != nil {
		deps[1].Checker = rc
	}
	if mc != nil {
		deps[2].Checker = mc
	}
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}

// CLI 进程内运行所需的依赖，不连接 PostgreSQL 与 Redis
type CLI struct {
	Investigations *investigation.Service
	Assistant      *assistant.Service
	Web            workflowport.WebSearcher
}

// BuildCLI 组装 CLI 依赖
func BuildCLI(cfg *config.Config) *CLI {
	factory := llm.NewEinoFactory(cfg)
	prompts := workflowprompt.NewRegistry()
	retry := ProvideRetryPolicy(cfg)

	web := ProvideWebSearcher(cfg, retry, nil)
	pipeline := ProvideInvestigationPipeline(cfg, ProvideChunkSearcher(cfg, retry), factory, prompts)
	agent := ProvideDocumentAgent(cfg, ProvideDocumentSearcher(cfg, retry), factory, prompts)
	orchestrator := ProvideOrchestrator(cfg, web, agent, factory, prompts)

	opts := ProvideInvestigationOptions(cfg)
	opts.IndexFindings = false
	return &CLI{
		Investigations: investigation.NewService(nil, nil, pipeline, nil, nil, opts),
		Assistant:      assistant.NewService(orchestrator, nil, nil, nil, cfg.Assistant.HistoryWindow),
		Web:            web,
	}
}
