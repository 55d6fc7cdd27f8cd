package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"

	llmctx "agent-smith-api/internal/domain/service"
	wfmodel "agent-smith-api/internal/workflow/model"
	wfnode "agent-smith-api/internal/workflow/node"
	workflowport "agent-smith-api/internal/workflow/port"
	workflowprompt "agent-smith-api/internal/workflow/prompt"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
	"agent-smith-api/pkg/metrics"
)

const (
	nodeTurnPlan      = "orchestrator.plan"
	nodeTurnWeb       = "orchestrator.web_search"
	nodeTurnDocuments = "orchestrator.doc_search"
	nodeTurnRespond   = "orchestrator.respond"

	roleUser = "user"

	docSearchUnavailableNote = "Note: The `doc_search` tool is currently unavailable. Do not choose it."
)

// DocumentRunner 编排器对文档代理的依赖
type DocumentRunner interface {
	Available() bool
	Run(ctx context.Context, query string) (string, error)
}

// Orchestrator 每轮对话规划工具并生成回答
type Orchestrator struct {
	web      workflowport.WebSearcher
	docs     DocumentRunner
	factory  workflowport.ChatModelFactory
	prompts  *workflowprompt.Registry
	provider string

	chainOnce sync.Once
	chain     compose.Runnable[*turnState, *turnState]
	chainErr  error
}

func NewOrchestrator(web workflowport.WebSearcher, docs DocumentRunner, factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, provider string) *Orchestrator {
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	return &Orchestrator{web: web, docs: docs, factory: factory, prompts: prompts, provider: provider}
}

type turnState struct {
	Messages []wfmodel.Message
	History  string
	Question string
	Plan     wfmodel.Plan
	Context  string
	Reply    string
}

func (o *Orchestrator) documentsAvailable() bool {
	return o.docs != nil && o.docs.Available()
}

// Process 处理一轮对话。最后一条消息必须来自用户；图内的错误转为致歉回复而非返回错误
func (o *Orchestrator) Process(ctx context.Context, messages []wfmodel.Message) (wfmodel.Reply, error) {
	if o == nil || o.factory == nil {
		return wfmodel.Reply{}, fmt.Errorf("llm factory not configured")
	}
	if len(messages) == 0 {
		return wfmodel.Reply{}, apperrors.ErrInvalidParam.WithDetail("messages are required")
	}
	last := messages[len(messages)-1]
	if last.Role != roleUser {
		return wfmodel.Reply{}, apperrors.ErrInvalidParam.WithDetail("last message must come from the user")
	}
	if strings.TrimSpace(last.Content) == "" {
		return wfmodel.Reply{}, apperrors.ErrInvalidParam.WithDetail("last message is empty")
	}

	ctx = llmctx.WithLLMScope(ctx, "orchestrator", o.provider)
	st := &turnState{
		Messages: messages,
		History:  wfnode.FormatHistory(messages),
		Question: last.Content,
		Plan:     wfmodel.Plan{Tool: wfmodel.ToolNone},
	}

	chain, err := o.getChain()
	if err == nil {
		var out *turnState
		out, err = chain.Invoke(ctx, st)
		if err == nil {
			return wfmodel.Reply{Content: out.Reply, Tool: out.Plan.Tool, Query: out.Plan.Query}, nil
		}
	}

	logger.Error(ctx, "orchestrator turn failed", err)
	return wfmodel.Reply{
		Content: fmt.Sprintf("I'm sorry, an error occurred: %v", err),
		Tool:    st.Plan.Tool,
		Query:   st.Plan.Query,
	}, nil
}

func (o *Orchestrator) getChain() (compose.Runnable[*turnState, *turnState], error) {
	o.chainOnce.Do(func() {
		o.chain, o.chainErr = o.buildChain(context.Background())
	})
	return o.chain, o.chainErr
}

func (o *Orchestrator) buildChain(ctx context.Context) (compose.Runnable[*turnState, *turnState], error) {
	g := compose.NewGraph[*turnState, *turnState]()

	if err := g.AddLambdaNode(nodeTurnPlan, compose.InvokableLambda(o.plan), compose.WithNodeName(nodeTurnPlan)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeTurnWeb, compose.InvokableLambda(o.webSearch), compose.WithNodeName(nodeTurnWeb)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeTurnDocuments, compose.InvokableLambda(o.docSearch), compose.WithNodeName(nodeTurnDocuments)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeTurnRespond, compose.InvokableLambda(o.respond), compose.WithNodeName(nodeTurnRespond)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeTurnPlan); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(func(_ context.Context, st *turnState) (string, error) {
		switch st.Plan.Tool {
		case wfmodel.ToolWebSearch:
			return nodeTurnWeb, nil
		case wfmodel.ToolDocSearch:
			return nodeTurnDocuments, nil
		default:
			return nodeTurnRespond, nil
		}
	}, map[string]bool{nodeTurnWeb: true, nodeTurnDocuments: true, nodeTurnRespond: true})
	if err := g.AddBranch(nodeTurnPlan, branch); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeTurnWeb, nodeTurnRespond); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeTurnDocuments, nodeTurnRespond); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeTurnRespond, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx, compose.WithGraphName("orchestrator"))
}

func (o *Orchestrator) plan(ctx context.Context, st *turnState) (*turnState, error) {
	note := ""
	if !o.documentsAvailable() {
		note = docSearchUnavailableNote
	}
	msgs, err := o.prompts.Format(ctx, workflowprompt.PromptPlanV1, map[string]any{
		"availability_note": note,
		"history":           st.History,
		"question":          st.Question,
	})
	if err != nil {
		return nil, err
	}
	chatModel, err := o.factory.Get(ctx, o.provider)
	if err != nil {
		return nil, err
	}

	plan := wfmodel.Plan{Tool: wfmodel.ToolNone}
	outMsg, err := generate(llmctx.WithLLMScope(ctx, "orchestrator_plan", ""), chatModel, msgs, true)
	if err == nil {
		plan, err = wfnode.ParsePlan(outMsg.Content)
	}
	if err != nil {
		logger.Warn(ctx, "planner failed, defaulting to no tool", "error", err.Error())
		plan = wfmodel.Plan{Tool: wfmodel.ToolNone}
	}

	if plan.Tool == wfmodel.ToolDocSearch && !o.documentsAvailable() {
		plan.Tool = wfmodel.ToolWebSearch
	}
	if plan.Tool == wfmodel.ToolWebSearch && o.web == nil {
		plan.Tool = wfmodel.ToolNone
	}
	if plan.Tool != wfmodel.ToolNone && plan.Query == "" {
		plan.Query = strings.TrimSpace(st.Question)
	}
	st.Plan = plan

	metrics.OrchestratorRoutes.WithLabelValues(string(plan.Tool)).Inc()
	logger.Info(ctx, "planner decision", "tool", plan.Tool, "query", plan.Query)
	return st, nil
}

func (o *Orchestrator) webSearch(ctx context.Context, st *turnState) (*turnState, error) {
	results, err := o.web.Search(ctx, st.Plan.Query, 0)
	if err != nil {
		return nil, err
	}
	st.Context = "Web Search Results:\n<web_search_results>\n" + wfnode.FormatWebResults(results) +
		"\n</web_search_results>\n\nSynthesize an answer from the web results. Cite URLs."
	return st, nil
}

func (o *Orchestrator) docSearch(ctx context.Context, st *turnState) (*turnState, error) {
	summary, err := o.docs.Run(ctx, st.Plan.Query)
	if err != nil {
		return nil, err
	}
	st.Context = "Internal Document Summary:\n<document_summary>\n" + summary +
		"\n</document_summary>\n\nSynthesize an answer based on the internal document summary."
	return st, nil
}

func (o *Orchestrator) respond(ctx context.Context, st *turnState) (*turnState, error) {
	extra := st.Context
	if extra == "" {
		extra = "Provide a conversational response based on the history."
	}
	msgs, err := o.prompts.Format(ctx, workflowprompt.PromptRespondV1, map[string]any{
		"history": st.History,
		"context": "\n" + extra,
	})
	if err != nil {
		return nil, err
	}
	chatModel, err := o.factory.Get(ctx, o.provider)
	if err != nil {
		return nil, err
	}
	outMsg, err := generate(llmctx.WithLLMScope(ctx, "orchestrator_respond", ""), chatModel, msgs, false)
	if err != nil {
		return nil, err
	}
	st.Reply = strings.TrimSpace(outMsg.Content)
	return st, nil
}
