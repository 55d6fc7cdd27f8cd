package findings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"agent-smith-api/internal/domain/entity"
)

const (
	defaultEmbeddingBatch = 32
	defaultTopK           = 5
	maxTopK               = 50
)

// Indexer 将调查产出的主记录写入向量库，并支持按自然语言检索相似记录
type Indexer struct {
	embedder embedding.Embedder
	vector   VectorRepository

	embeddingBatchSize int
	now                func() time.Time
}

func NewIndexer(embedder embedding.Embedder, vectorRepo VectorRepository, embeddingBatchSize int) *Indexer {
	bs := embeddingBatchSize
	if bs <= 0 {
		bs = defaultEmbeddingBatch
	}
	return &Indexer{
		embedder:           embedder,
		vector:             vectorRepo,
		embeddingBatchSize: bs,
		now:                time.Now,
	}
}

func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

func (i *Indexer) ensureReady(ctx context.Context) error {
	if !i.Enabled() {
		return ErrIndexDisabled
	}
	return i.vector.EnsureFindingsCollection(ctx)
}

// IndexFindings 重建某次调查的主记录索引，返回写入条数
//
// 先删除该调查已有的向量，保证重复执行时结果幂等；仅索引 Primary Record。
func (i *Indexer) IndexFindings(ctx context.Context, investigationID, query string, findings []entity.Finding) (int, error) {
	if strings.TrimSpace(investigationID) == "" {
		return 0, fmt.Errorf("investigation_id is required")
	}
	if err := i.ensureReady(ctx); err != nil {
		return 0, err
	}
	if err := i.vector.DeleteByInvestigation(ctx, investigationID); err != nil {
		return 0, err
	}

	primaries := make([]entity.Finding, 0, len(findings))
	for _, f := range findings {
		if f.IsPrimary() {
			primaries = append(primaries, f)
		}
	}
	if len(primaries) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(primaries))
	for _, f := range primaries {
		texts = append(texts, embeddingText(query, f))
	}
	vectors, err := i.embedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(primaries) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(primaries))
	}

	createdAt := i.now().Unix()
	rows := make([]*VectorFinding, 0, len(primaries))
	for idx, f := range primaries {
		rows = append(rows, &VectorFinding{
			ID:              uuid.NewString(),
			InvestigationID: investigationID,
			Query:           query,
			SourceFile:      f.SourceFile,
			Assessment:      string(f.Assessment),
			Confidence:      string(f.Confidence),
			Justification:   f.Justification,
			CreatedAt:       createdAt,
			Vector:          vectors[idx],
		})
	}
	if err := i.vector.InsertFindings(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Similar 以查询文本检索相似的历史主记录
func (i *Indexer) Similar(ctx context.Context, query string, topK int) ([]entity.SimilarFinding, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if err := i.ensureReady(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vectors, err := i.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want 1", len(vectors))
	}

	results, err := i.vector.SearchFindings(ctx, &VectorSearchParams{QueryVector: vectors[0], TopK: topK})
	if err != nil {
		return nil, err
	}

	out := make([]entity.SimilarFinding, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, entity.SimilarFinding{
			ID:              r.ID,
			InvestigationID: r.InvestigationID,
			Query:           r.Query,
			SourceFile:      r.SourceFile,
			Assessment:      entity.Assessment(r.Assessment),
			Confidence:      entity.Confidence(r.Confidence),
			Justification:   r.Justification,
			Score:           r.Score,
		})
	}
	return out, nil
}

func embeddingText(query string, f entity.Finding) string {
	var b strings.Builder
	b.WriteString("query: ")
	b.WriteString(query)
	b.WriteString("\nsource: ")
	b.WriteString(f.SourceFile)
	if pii := f.PIISummary(); pii != "" {
		b.WriteString("\npii: ")
		b.WriteString(pii)
	}
	if f.Justification != "" {
		b.WriteString("\njustification: ")
		b.WriteString(f.Justification)
	}
	return b.String()
}

func (i *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += i.embeddingBatchSize {
		end := start + i.embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		v64, err := i.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, vec := range v64 {
			f32 := make([]float32, 0, len(vec))
			for _, x := range vec {
				f32 = append(f32, float32(x))
			}
			out = append(out, f32)
		}
	}
	return out, nil
}
