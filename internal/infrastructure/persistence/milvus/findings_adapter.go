package milvus

import (
	"context"

	"agent-smith-api/internal/application/findings"
)

// FindingsVectorRepository 将 Repository 适配为 findings.VectorRepository
type FindingsVectorRepository struct {
	repo *Repository
}

func NewFindingsVectorRepository(repo *Repository) *FindingsVectorRepository {
	return &FindingsVectorRepository{repo: repo}
}

var _ findings.VectorRepository = (*FindingsVectorRepository)(nil)

func (r *FindingsVectorRepository) EnsureFindingsCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return findings.ErrIndexDisabled
	}
	return r.repo.EnsureFindingsCollection(ctx)
}

func (r *FindingsVectorRepository) InsertFindings(ctx context.Context, rows []*findings.VectorFinding) error {
	if r == nil || r.repo == nil {
		return findings.ErrIndexDisabled
	}
	out := make([]*FindingRow, 0, len(rows))
	for _, f := range rows {
		if f == nil {
			continue
		}
		out = append(out, &FindingRow{
			ID:              f.ID,
			Vector:          f.Vector,
			InvestigationID: f.InvestigationID,
			Query:           f.Query,
			SourceFile:      f.SourceFile,
			Assessment:      f.Assessment,
			Confidence:      f.Confidence,
			Justification:   f.Justification,
			CreatedAt:       f.CreatedAt,
		})
	}
	return r.repo.InsertFindings(ctx, out)
}

func (r *FindingsVectorRepository) DeleteByInvestigation(ctx context.Context, investigationID string) error {
	if r == nil || r.repo == nil {
		return findings.ErrIndexDisabled
	}
	return r.repo.DeleteByInvestigation(ctx, investigationID)
}

func (r *FindingsVectorRepository) SearchFindings(ctx context.Context, params *findings.VectorSearchParams) ([]*findings.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, findings.ErrIndexDisabled
	}
	if params == nil {
		return nil, nil
	}

	hits, err := r.repo.SearchFindings(ctx, params.QueryVector, params.TopK)
	if err != nil {
		return nil, err
	}
	results := make([]*findings.VectorSearchResult, 0, len(hits))
	for _, h := range hits {
		if h == nil {
			continue
		}
		results = append(results, &findings.VectorSearchResult{
			ID:              h.ID,
			Score:           h.Score,
			InvestigationID: h.InvestigationID,
			Query:           h.Query,
			SourceFile:      h.SourceFile,
			Assessment:      h.Assessment,
			Confidence:      h.Confidence,
			Justification:   h.Justification,
		})
	}
	return results, nil
}
