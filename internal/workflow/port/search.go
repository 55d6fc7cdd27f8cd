package port

import (
	"context"

	"agent-smith-api/internal/domain/entity"
)

// WebSearcher 公网搜索
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]entity.WebResult, error)
}

// DocumentSearcher 内部文档检索
type DocumentSearcher interface {
	Available() bool
	Search(ctx context.Context, query string, limit int) ([]entity.DocumentSummary, error)
	Fetch(ctx context.Context, docID string) (*entity.Document, error)
}

// ChunkSearcher 片段检索
type ChunkSearcher interface {
	Available() bool
	SearchChunks(ctx context.Context, q entity.ChunkQuery) ([]entity.Chunk, error)
}
