package chain

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"agent-smith-api/internal/domain/entity"
)

// scriptedModel 按 system 提示词分派预设回复
type scriptedModel struct {
	mu    sync.Mutex
	calls []string
	reply func(system, user string, jsonMode bool) (string, error)
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var system, user string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = msg.Content
		case schema.User:
			user = msg.Content
		}
	}
	m.mu.Lock()
	m.calls = append(m.calls, system)
	m.mu.Unlock()

	content, err := m.reply(system, user, len(opts) > 0)
	if err != nil {
		return nil, err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedModel) callsWithPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeFactory struct {
	model model.BaseChatModel
	err   error
}

func (f fakeFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type fakeChunks struct {
	chunks []entity.Chunk
	err    error
	query  entity.ChunkQuery
}

func (f *fakeChunks) Available() bool { return true }

func (f *fakeChunks) SearchChunks(_ context.Context, q entity.ChunkQuery) ([]entity.Chunk, error) {
	f.query = q
	return f.chunks, f.err
}

type fakeDocs struct {
	available bool
	results   []entity.DocumentSummary
	docs      map[string]entity.Document
	fetched   []string
}

func (f *fakeDocs) Available() bool { return f.available }

func (f *fakeDocs) Search(context.Context, string, int) ([]entity.DocumentSummary, error) {
	return f.results, nil
}

func (f *fakeDocs) Fetch(_ context.Context, id string) (*entity.Document, error) {
	f.fetched = append(f.fetched, id)
	doc, ok := f.docs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &doc, nil
}

type fakeWeb struct {
	results []entity.WebResult
	err     error
	queries []string
}

func (f *fakeWeb) Search(_ context.Context, query string, _ int) ([]entity.WebResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

const (
	triagePrompt     = "You are a data triage analyst"
	reportPrompt     = "You are a lead intelligence analyst"
	selectPrompt     = "You are a selection expert"
	synthesizePrompt = "You are a research analyst"
	planPrompt       = "You are an expert planner"
	respondPrompt    = "You are Agent Smith"
)
