package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"

	"agent-smith-api/internal/domain/entity"
	llmctx "agent-smith-api/internal/domain/service"
	wfnode "agent-smith-api/internal/workflow/node"
	workflowport "agent-smith-api/internal/workflow/port"
	workflowprompt "agent-smith-api/internal/workflow/prompt"
	"agent-smith-api/pkg/logger"
)

const (
	nodeDocSearch     = "document.search"
	nodeDocSelect     = "document.select"
	nodeDocFetch      = "document.fetch"
	nodeDocSynthesize = "document.synthesize"
)

// DocumentAgent 内部文档检索代理：search → select → fetch → synthesize
type DocumentAgent struct {
	docs     workflowport.DocumentSearcher
	factory  workflowport.ChatModelFactory
	prompts  *workflowprompt.Registry
	provider string
	limit    int

	chainOnce sync.Once
	chain     compose.Runnable[*documentState, *documentState]
	chainErr  error
}

func NewDocumentAgent(docs workflowport.DocumentSearcher, factory workflowport.ChatModelFactory, prompts *workflowprompt.Registry, provider string, limit int) *DocumentAgent {
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	return &DocumentAgent{docs: docs, factory: factory, prompts: prompts, provider: provider, limit: limit}
}

// Available 文档检索未配置时编排器不会路由到该代理
func (a *DocumentAgent) Available() bool {
	return a != nil && a.docs != nil && a.docs.Available()
}

type documentState struct {
	Query     string
	Results   []entity.DocumentSummary
	Selected  []string
	Documents strings.Builder
	Fetched   int
	Answer    string
}

// Run 返回基于所选文档全文的回答
func (a *DocumentAgent) Run(ctx context.Context, query string) (string, error) {
	if !a.Available() {
		return "", fmt.Errorf("document search not configured")
	}
	if a.factory == nil {
		return "", fmt.Errorf("llm factory not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("query is empty")
	}

	chain, err := a.getChain()
	if err != nil {
		return "", err
	}
	ctx = llmctx.WithLLMScope(ctx, "document_agent", a.provider)
	out, err := chain.Invoke(ctx, &documentState{Query: query})
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

func (a *DocumentAgent) getChain() (compose.Runnable[*documentState, *documentState], error) {
	a.chainOnce.Do(func() {
		a.chain, a.chainErr = a.buildChain(context.Background())
	})
	return a.chain, a.chainErr
}

func (a *DocumentAgent) buildChain(ctx context.Context) (compose.Runnable[*documentState, *documentState], error) {
	g := compose.NewGraph[*documentState, *documentState]()

	if err := g.AddLambdaNode(nodeDocSearch, compose.InvokableLambda(a.search), compose.WithNodeName(nodeDocSearch)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeDocSelect, compose.InvokableLambda(a.selectDocuments), compose.WithNodeName(nodeDocSelect)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeDocFetch, compose.InvokableLambda(a.fetch), compose.WithNodeName(nodeDocFetch)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeDocSynthesize, compose.InvokableLambda(a.synthesize), compose.WithNodeName(nodeDocSynthesize)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeDocSearch); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeDocSearch, nodeDocSelect); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(func(_ context.Context, st *documentState) (string, error) {
		if len(st.Selected) == 0 {
			return nodeDocSynthesize, nil
		}
		return nodeDocFetch, nil
	}, map[string]bool{nodeDocFetch: true, nodeDocSynthesize: true})
	if err := g.AddBranch(nodeDocSelect, branch); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeDocFetch, nodeDocSynthesize); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeDocSynthesize, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx, compose.WithGraphName("document_agent"))
}

func (a *DocumentAgent) search(ctx context.Context, st *documentState) (*documentState, error) {
	results, err := a.docs.Search(ctx, st.Query, a.limit)
	if err != nil {
		return nil, err
	}
	st.Results = results
	return st, nil
}

func (a *DocumentAgent) selectDocuments(ctx context.Context, st *documentState) (*documentState, error) {
	if !wfnode.HasUsableDocuments(st.Results) {
		return st, nil
	}
	results, err := wfnode.FormatDocumentResults(st.Results)
	if err != nil {
		return nil, err
	}
	msgs, err := a.prompts.Format(ctx, workflowprompt.PromptDocSelectV1, map[string]any{
		"query":   st.Query,
		"results": results,
	})
	if err != nil {
		return nil, err
	}
	chatModel, err := a.factory.Get(ctx, a.provider)
	if err != nil {
		return nil, err
	}
	outMsg, err := generate(ctx, chatModel, msgs, true)
	if err != nil {
		return nil, err
	}
	st.Selected = wfnode.ParseDocSelection(outMsg.Content, st.Results)
	logger.Info(ctx, "documents selected", "query", st.Query, "selected", len(st.Selected))
	return st, nil
}

func (a *DocumentAgent) fetch(ctx context.Context, st *documentState) (*documentState, error) {
	for _, id := range st.Selected {
		doc, err := a.docs.Fetch(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn(ctx, "document fetch failed, skipped", "doc_id", id, "error", err.Error())
			continue
		}
		st.Documents.WriteString(wfnode.RenderDocument(doc))
		st.Fetched++
	}
	return st, nil
}

func (a *DocumentAgent) synthesize(ctx context.Context, st *documentState) (*documentState, error) {
	if st.Fetched == 0 {
		if len(st.Selected) == 0 {
			st.Answer = wfnode.NoDocumentsSelected
		} else {
			st.Answer = wfnode.NoDocumentContent
		}
		return st, nil
	}

	msgs, err := a.prompts.Format(ctx, workflowprompt.PromptDocSynthesizeV1, map[string]any{
		"query":     st.Query,
		"documents": st.Documents.String(),
	})
	if err != nil {
		return nil, err
	}
	chatModel, err := a.factory.Get(ctx, a.provider)
	if err != nil {
		return nil, err
	}
	outMsg, err := generate(ctx, chatModel, msgs, false)
	if err != nil {
		return nil, err
	}
	st.Answer = strings.TrimSpace(outMsg.Content)
	return st, nil
}
