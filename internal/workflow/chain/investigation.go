package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"golang.org/x/sync/errgroup"

	"agent-smith-api/internal/domain/entity"
	llmctx "agent-smith-api/internal/domain/service"
	wfnode "agent-smith-api/internal/workflow/node"
	workflowport "agent-smith-api/internal/workflow/port"
	workflowprompt "agent-smith-api/internal/workflow/prompt"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/metrics"
	"agent-smith-api/pkg/tracer"
)

const (
	nodeInvestigationSearch = "investigation.search"
	nodeInvestigationParse  = "investigation.parse"
	nodeInvestigationTriage = "investigation.triage"
	nodeInvestigationReport = "investigation.report"

	defaultTriageConcurrency = 4
)

// InvestigationOptions 调查流水线参数
type InvestigationOptions struct {
	Provider          string
	TriageConcurrency int
}

// InvestigationPipeline search → parse → triage → report
type InvestigationPipeline struct {
	chunks  workflowport.ChunkSearcher
	factory workflowport.ChatModelFactory
	prompts *workflowprompt.Registry
	opts    InvestigationOptions

	chainOnce sync.Once
	chain     compose.Runnable[*investigationState, *investigationState]
	chainErr  error
}

func NewInvestigationPipeline(chunks workflowport.ChunkSearcher, factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, opts InvestigationOptions) *InvestigationPipeline {
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	if opts.TriageConcurrency <= 0 {
		opts.TriageConcurrency = defaultTriageConcurrency
	}
	return &InvestigationPipeline{chunks: chunks, factory: factory, prompts: prompts, opts: opts}
}

type investigationState struct {
	Profile  entity.InvestigationProfile
	Chunks   []entity.Chunk
	Records  []entity.Record
	Discards []entity.DiscardEntry
	Findings []entity.Finding
	Failed   int
	Sources  []entity.SourceRef
	Report   string

	usage     *usageTracker
	searchErr error
}

// Run 执行一次调查。检索失败返回 CodeSearchFailed，分诊与报告失败不致命
func (p *InvestigationPipeline) Run(ctx context.Context, profile entity.InvestigationProfile) (*entity.InvestigationResult, error) {
	if p == nil || p.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if p.chunks == nil || !p.chunks.Available() {
		return nil, apperrors.ErrSearchUnavailable.WithDetail("chunk search")
	}
	profile.Query = strings.TrimSpace(profile.Query)
	if profile.Query == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("query is required")
	}
	if profile.Description == "" {
		profile.Description = fmt.Sprintf("Investigate '%s'", profile.Query)
	}

	chain, err := p.getChain()
	if err != nil {
		return nil, err
	}

	ctx = llmctx.WithLLMScope(ctx, "investigation", p.opts.Provider)
	ctx, span := tracer.Start(ctx, "investigation.run")
	defer span.End()

	started := time.Now()
	st := &investigationState{Profile: profile, usage: newUsageTracker(p.opts.Provider)}
	out, err := chain.Invoke(ctx, st)
	if err != nil {
		tracer.RecordError(span, err)
		if st.searchErr != nil {
			return nil, st.searchErr
		}
		return nil, err
	}
	return out.result(time.Since(started)), nil
}

func (st *investigationState) result(elapsed time.Duration) *entity.InvestigationResult {
	usage := st.usage.snapshot()
	primary := 0
	for _, f := range st.Findings {
		if f.IsPrimary() {
			primary++
		}
	}
	findings := st.Findings
	if findings == nil {
		findings = []entity.Finding{}
	}
	discards := st.Discards
	if discards == nil {
		discards = []entity.DiscardEntry{}
	}
	return &entity.InvestigationResult{
		Report:     st.Report,
		Findings:   findings,
		DiscardLog: discards,
		Sources:    st.Sources,
		Stats: entity.InvestigationStats{
			Chunks:       len(st.Chunks),
			Records:      len(st.Records),
			Discarded:    len(st.Discards),
			Triaged:      len(st.Findings),
			Primary:      primary,
			FailedTriage: st.Failed,
			PromptTokens: usage.PromptTokens,
			OutputTokens: usage.CompletionTokens,
			DurationMs:   elapsed.Milliseconds(),
		},
	}
}

func (p *InvestigationPipeline) getChain() (compose.Runnable[*investigationState, *investigationState], error) {
	p.chainOnce.Do(func() {
		p.chain, p.chainErr = p.buildChain(context.Background())
	})
	return p.chain, p.chainErr
}

func (p *InvestigationPipeline) buildChain(ctx context.Context) (compose.Runnable[*investigationState, *investigationState], error) {
	g := compose.NewGraph[*investigationState, *investigationState]()

	nodes := []struct {
		key string
		fn  func(context.Context, *investigationState) (*investigationState, error)
	}{
		{nodeInvestigationSearch, p.search},
		{nodeInvestigationParse, p.parse},
		{nodeInvestigationTriage, p.triage},
		{nodeInvestigationReport, p.report},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, compose.InvokableLambda(timedStage(n.key, n.fn)), compose.WithNodeName(n.key)); err != nil {
			return nil, err
		}
	}

	if err := g.AddEdge(compose.START, nodeInvestigationSearch); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeInvestigationSearch, nodeInvestigationParse); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(func(_ context.Context, st *investigationState) (string, error) {
		if len(st.Records) == 0 {
			return nodeInvestigationReport, nil
		}
		return nodeInvestigationTriage, nil
	}, map[string]bool{nodeInvestigationTriage: true, nodeInvestigationReport: true})
	if err := g.AddBranch(nodeInvestigationParse, branch); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeInvestigationTriage, nodeInvestigationReport); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeInvestigationReport, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx, compose.WithGraphName("investigation"))
}

// timedStage 为每个阶段记录耗时指标并校验状态
func timedStage(stage string, fn func(context.Context, *investigationState) (*investigationState, error)) func(context.Context, *investigationState) (*investigationState, error) {
	return func(ctx context.Context, st *investigationState) (*investigationState, error) {
		if st == nil {
			return nil, fmt.Errorf("state is nil")
		}
		ctx = logger.WithContext(ctx, logger.StageKey, stage)
		started := time.Now()
		defer func() {
			metrics.InvestigationStageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
		}()
		return fn(ctx, st)
	}
}

func (p *InvestigationPipeline) search(ctx context.Context, st *investigationState) (*investigationState, error) {
	chunks, err := p.chunks.SearchChunks(ctx, st.Profile.ChunkQuery())
	if err != nil {
		if apperrors.IsAppError(err) {
			st.searchErr = err
		} else {
			st.searchErr = apperrors.Wrap(err, apperrors.CodeSearchFailed, "chunk search failed")
		}
		return nil, st.searchErr
	}
	st.Chunks = chunks
	logger.Info(ctx, "chunk search completed", "query", st.Profile.Query, "chunks", len(chunks))
	return st, nil
}

func (p *InvestigationPipeline) parse(ctx context.Context, st *investigationState) (*investigationState, error) {
	st.Records, st.Discards = wfnode.ParseChunks(st.Chunks, st.Profile.Query, st.Profile.ContextLines)
	for _, d := range st.Discards {
		metrics.DiscardedChunks.WithLabelValues(discardLabel(d.Reason)).Inc()
	}
	logger.Info(ctx, "chunks parsed", "records", len(st.Records), "discarded", len(st.Discards))
	return st, nil
}

func discardLabel(reason string) string {
	switch reason {
	case entity.DiscardReasonEmpty:
		return "empty"
	case entity.DiscardReasonNoMatch:
		return "no_match"
	default:
		return "other"
	}
}

func (p *InvestigationPipeline) triage(ctx context.Context, st *investigationState) (*investigationState, error) {
	chatModel, err := p.factory.Get(ctx, p.opts.Provider)
	if err != nil {
		return nil, err
	}
	ctx = llmctx.WithLLMScope(ctx, "investigation_triage", "")

	results := make([]*entity.Finding, len(st.Records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.TriageConcurrency)
	for i := range st.Records {
		record := st.Records[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			finding, err := p.triageRecord(gctx, chatModel, st, record)
			if err != nil {
				logger.Warn(gctx, "triage failed, record skipped",
					"source_file", record.SourceFile,
					"error", err.Error(),
				)
				metrics.TriageOutcomes.WithLabelValues("failed").Inc()
				return nil
			}
			metrics.TriageOutcomes.WithLabelValues(assessmentLabel(finding.Assessment)).Inc()
			results[i] = &finding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := make([]entity.Finding, 0, len(results))
	for _, f := range results {
		if f == nil {
			st.Failed++
			continue
		}
		findings = append(findings, *f)
	}
	entity.RankFindings(findings)
	st.Findings = findings
	logger.Info(ctx, "records triaged", "findings", len(findings), "failed", st.Failed)
	return st, nil
}

func (p *InvestigationPipeline) triageRecord(ctx context.Context, chatModel model.BaseChatModel, st *investigationState, record entity.Record) (entity.Finding, error) {
	msgs, err := p.prompts.Format(ctx, workflowprompt.PromptTriageV1, map[string]any{
		"query":     st.Profile.Query,
		"file_type": record.FileType,
		"record":    wfnode.RenderRecord(record),
	})
	if err != nil {
		return entity.Finding{}, err
	}
	outMsg, err := generate(ctx, chatModel, msgs, true)
	if err != nil {
		return entity.Finding{}, err
	}
	st.usage.observe(outMsg)
	return wfnode.ParseTriageResponse(outMsg.Content, record)
}

func assessmentLabel(a entity.Assessment) string {
	switch a {
	case entity.AssessmentPrimary:
		return "primary"
	case entity.AssessmentContextual:
		return "contextual"
	default:
		return "unknown"
	}
}

func (p *InvestigationPipeline) report(ctx context.Context, st *investigationState) (*investigationState, error) {
	if len(st.Findings) == 0 {
		st.Report = wfnode.EmptyReport(st.Discards)
		return st, nil
	}

	in := wfnode.BuildReportInputs(st.Findings, st.Discards)
	st.Sources = in.Sources

	report, err := p.generateReport(llmctx.WithLLMScope(ctx, "investigation_report", ""), st, in)
	if err != nil {
		logger.Error(ctx, "report generation failed", err)
		st.Report = wfnode.ReportFailure(err)
		return st, nil
	}
	st.Report = report
	return st, nil
}

func (p *InvestigationPipeline) generateReport(ctx context.Context, st *investigationState, in wfnode.ReportInputs) (string, error) {
	msgs, err := p.prompts.Format(ctx, workflowprompt.PromptReportV1, map[string]any{
		"description":      st.Profile.Description,
		"primary_findings": in.PrimaryFindings,
		"source_files":     in.SourceList,
		"discard_log":      in.DiscardLog,
	})
	if err != nil {
		return "", err
	}
	chatModel, err := p.factory.Get(ctx, p.opts.Provider)
	if err != nil {
		return "", err
	}
	outMsg, err := generate(ctx, chatModel, msgs, false)
	if err != nil {
		return "", err
	}
	st.usage.observe(outMsg)
	return strings.TrimSpace(outMsg.Content), nil
}
