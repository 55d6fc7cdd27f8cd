package wire

import (
	"agent-smith-api/internal/application/investigation"
	"agent-smith-api/internal/infrastructure/messaging"
	"agent-smith-api/internal/infrastructure/persistence/milvus"
	"agent-smith-api/internal/infrastructure/persistence/postgres"
)

// Worker 任务执行器依赖
type Worker struct {
	Consumer       *messaging.Consumer
	Investigations *investigation.Service
}

// Bootstrap 初始化任务依赖，FindingsRepo 在 Milvus 未启用时为 nil
type Bootstrap struct {
	PgClient     *postgres.Client
	FindingsRepo *milvus.Repository
}
