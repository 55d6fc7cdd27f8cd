package findings

import "context"

// VectorRepository 应用层对向量存储的最小依赖，由 Milvus 实现
type VectorRepository interface {
	EnsureFindingsCollection(ctx context.Context) error
	InsertFindings(ctx context.Context, findings []*VectorFinding) error
	DeleteByInvestigation(ctx context.Context, investigationID string) error
	SearchFindings(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
}

type VectorFinding struct {
	ID              string
	InvestigationID string
	Query           string
	SourceFile      string
	Assessment      string
	Confidence      string
	Justification   string
	CreatedAt       int64
	Vector          []float32
}

type VectorSearchParams struct {
	QueryVector []float32
	TopK        int
}

type VectorSearchResult struct {
	ID              string
	Score           float32
	InvestigationID string
	Query           string
	SourceFile      string
	Assessment      string
	Confidence      string
	Justification   string
}
