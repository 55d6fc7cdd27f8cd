package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agent-smith-api/pkg/metrics"
)

const (
	defaultHNSWM  = 16
	defaultHNSWEf = 200
	searchEf      = 128
)

var findingOutputFields = []string{
	fieldID, fieldInvestigationID, fieldQuery, fieldSourceFile,
	fieldAssessment, fieldConfidence, fieldJustification,
}

// Repository findings 集合的读写，集合名带配置的前缀
type Repository struct {
	client *Client
	dim    int
}

// NewRepository dim 为 Embedding 维度，<=0 时取 DefaultVectorDimension
func NewRepository(c *Client, dim int) *Repository {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &Repository{client: c, dim: dim}
}

func (r *Repository) ready() error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return errNotConfigured
	}
	return nil
}

func startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "milvus."+op, trace.WithAttributes(attrs...))
}

// fail 记录到 span 并包装错误
func fail(span trace.Span, err error, what string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, what)
	return fmt.Errorf("%s: %w", what, err)
}

func (r *Repository) metricType() entity.MetricType {
	switch strings.ToUpper(strings.TrimSpace(r.client.config.MetricType)) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}

// vectorIndex index_type 为 FLAT 时建平铺索引，其余一律 HNSW
func (r *Repository) vectorIndex() (entity.Index, error) {
	cfg := r.client.config
	if strings.EqualFold(cfg.IndexType, "FLAT") {
		return entity.NewIndexFlat(r.metricType())
	}
	m, ef := cfg.HNSWM, cfg.HNSWEfConstruction
	if m <= 0 {
		m = defaultHNSWM
	}
	if ef <= 0 {
		ef = defaultHNSWEf
	}
	return entity.NewIndexHNSW(r.metricType(), m, ef)
}

func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if err := r.ready(); err != nil {
		return err
	}
	schema.CollectionName = r.client.CollectionName(schema.CollectionName)
	ctx, span := startSpan(ctx, "CreateCollection", attribute.String("collection", schema.CollectionName))
	defer span.End()

	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fail(span, err, "create collection "+schema.CollectionName)
	}
	return nil
}

func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if err := r.ready(); err != nil {
		return err
	}
	name := r.client.CollectionName(collection)
	ctx, span := startSpan(ctx, "CreateIndex", attribute.String("collection", name))
	defer span.End()

	idx, err := r.vectorIndex()
	if err != nil {
		return fail(span, err, "build index params")
	}
	if err := r.client.milvus.CreateIndex(ctx, name, fieldVector, idx, false); err != nil {
		return fail(span, err, "create index on "+name)
	}
	return nil
}

// EnsureFindingsCollection 缺失时建集合与索引，随后加载；已存在的集合不做修改
func (r *Repository) EnsureFindingsCollection(ctx context.Context) error {
	if err := r.ready(); err != nil {
		return err
	}
	exists, err := r.client.HasCollection(ctx, CollectionFindings)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, FindingsSchema(r.dim)); err != nil {
			return err
		}
		if err := r.CreateIndex(ctx, CollectionFindings); err != nil {
			return err
		}
	}
	return r.client.LoadCollection(ctx, CollectionFindings)
}

// findingColumns 列式缓冲，VarChar 按 schema 的 max_length 截断
type findingColumns struct {
	ids, investigations, queries, sources     []string
	assessments, confidences, justifications []string
	vectors                                   [][]float32
	createdAt                                 []int64
}

func (c *findingColumns) add(row *FindingRow) {
	c.ids = append(c.ids, row.ID)
	c.vectors = append(c.vectors, row.Vector)
	c.investigations = append(c.investigations, row.InvestigationID)
	c.queries = append(c.queries, truncateRunes(row.Query, 1024))
	c.sources = append(c.sources, truncateRunes(row.SourceFile, 1024))
	c.assessments = append(c.assessments, truncateRunes(row.Assessment, 64))
	c.confidences = append(c.confidences, truncateRunes(row.Confidence, 16))
	c.justifications = append(c.justifications, truncateRunes(row.Justification, 8192))
	c.createdAt = append(c.createdAt, row.CreatedAt)
}

func (c *findingColumns) columns(dim int) []entity.Column {
	return []entity.Column{
		entity.NewColumnVarChar(fieldID, c.ids),
		entity.NewColumnFloatVector(fieldVector, dim, c.vectors),
		entity.NewColumnVarChar(fieldInvestigationID, c.investigations),
		entity.NewColumnVarChar(fieldQuery, c.queries),
		entity.NewColumnVarChar(fieldSourceFile, c.sources),
		entity.NewColumnVarChar(fieldAssessment, c.assessments),
		entity.NewColumnVarChar(fieldConfidence, c.confidences),
		entity.NewColumnVarChar(fieldJustification, c.justifications),
		entity.NewColumnInt64(fieldCreatedAt, c.createdAt),
	}
}

// InsertFindings nil 行跳过，任一向量维度不符时整批拒绝
func (r *Repository) InsertFindings(ctx context.Context, rows []*FindingRow) error {
	if err := r.ready(); err != nil {
		return err
	}
	var cols findingColumns
	for _, row := range rows {
		if row == nil {
			continue
		}
		if len(row.Vector) != r.dim {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(row.Vector), r.dim)
		}
		cols.add(row)
	}
	if len(cols.ids) == 0 {
		return nil
	}

	ctx, span := startSpan(ctx, "InsertFindings", attribute.Int("count", len(cols.ids)))
	defer span.End()
	if _, err := r.client.milvus.Insert(ctx, r.client.CollectionName(CollectionFindings), "", cols.columns(r.dim)...); err != nil {
		return fail(span, err, "insert findings")
	}
	return nil
}

func (r *Repository) DeleteByInvestigation(ctx context.Context, investigationID string) error {
	if err := r.ready(); err != nil {
		return err
	}
	investigationID = strings.TrimSpace(investigationID)
	if investigationID == "" {
		return nil
	}
	ctx, span := startSpan(ctx, "DeleteByInvestigation", attribute.String("investigation_id", investigationID))
	defer span.End()

	if err := r.client.milvus.Delete(ctx, r.client.CollectionName(CollectionFindings), "", investigationFilter(investigationID)); err != nil {
		return fail(span, err, "delete findings")
	}
	return nil
}

func (r *Repository) SearchFindings(ctx context.Context, queryVector []float32, topK int) (hits []*FindingHit, err error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "SearchFindings", attribute.Int("top_k", topK))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.MilvusSearchDuration.WithLabelValues(CollectionFindings).Observe(time.Since(start).Seconds())
		metrics.MilvusSearchTotal.WithLabelValues(CollectionFindings, status).Inc()
	}()

	sp, err := entity.NewIndexHNSWSearchParam(searchEf)
	if err != nil {
		return nil, fail(span, err, "build search params")
	}
	results, err := r.client.milvus.Search(ctx, r.client.CollectionName(CollectionFindings), nil, "",
		findingOutputFields,
		[]entity.Vector{entity.FloatVector(queryVector)},
		fieldVector, r.metricType(), topK, sp,
	)
	if err != nil {
		return nil, fail(span, err, "search findings")
	}

	hits = make([]*FindingHit, 0, topK)
	for _, res := range results {
		for i := range res.ResultCount {
			hits = append(hits, findingHitAt(res, i))
		}
	}
	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

func findingHitAt(res client.SearchResult, i int) *FindingHit {
	col := func(name string) string { return varCharAt(res.Fields, name, i) }
	return &FindingHit{
		ID:              col(fieldID),
		Score:           res.Scores[i],
		InvestigationID: col(fieldInvestigationID),
		Query:           col(fieldQuery),
		SourceFile:      col(fieldSourceFile),
		Assessment:      col(fieldAssessment),
		Confidence:      col(fieldConfidence),
		Justification:   col(fieldJustification),
	}
}

func varCharAt(fields client.ResultSet, name string, i int) string {
	col, ok := fields.GetColumn(name).(*entity.ColumnVarChar)
	if !ok {
		return ""
	}
	if data := col.Data(); i < len(data) {
		return data[i]
	}
	return ""
}

// investigationFilter 转义后的布尔表达式
func investigationFilter(investigationID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(investigationID)
	return fmt.Sprintf(`%s == "%s"`, fieldInvestigationID, escaped)
}
