package chain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/domain/entity"
	wfmodel "agent-smith-api/internal/workflow/model"
	apperrors "agent-smith-api/pkg/errors"
)

type fakeDocumentRunner struct {
	available bool
	answer    string
	queries   []string
}

func (f *fakeDocumentRunner) Available() bool { return f.available }

func (f *fakeDocumentRunner) Run(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.answer, nil
}

func plannerModel(plan string, captured *string) *scriptedModel {
	return &scriptedModel{reply: func(system, user string, _ bool) (string, error) {
		switch {
		case strings.HasPrefix(system, planPrompt):
			return plan, nil
		case strings.HasPrefix(system, respondPrompt):
			if captured != nil {
				*captured = user
			}
			return "final answer", nil
		}
		return "", errors.New("unexpected prompt")
	}}
}

func userTurn(content string) []wfmodel.Message {
	return []wfmodel.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: content},
	}
}

func TestOrchestratorWebSearch(t *testing.T) {
	web := &fakeWeb{results: []entity.WebResult{{Title: "Go 1.24", Snippet: "released", URL: "https://go.dev"}}}
	var respondInput string
	o := NewOrchestrator(web, nil, fakeFactory{model: plannerModel(`{"tool_choice":"web_search","query":"go 1.24 release date"}`, &respondInput)}, nil, "")

	reply, err := o.Process(context.Background(), userTurn("when did go 1.24 come out?"))
	require.NoError(t, err)

	assert.Equal(t, wfmodel.Reply{Content: "final answer", Tool: wfmodel.ToolWebSearch, Query: "go 1.24 release date"}, reply)
	assert.Equal(t, []string{"go 1.24 release date"}, web.queries)
	assert.Contains(t, respondInput, "user: hi\nassistant: hello\nuser: when did go 1.24 come out?")
	assert.Contains(t, respondInput, "Title: Go 1.24\nSnippet: released\nURL: https://go.dev")
	assert.Contains(t, respondInput, "Cite URLs.")
}

func TestOrchestratorDocSearch(t *testing.T) {
	docs := &fakeDocumentRunner{available: true, answer: "Acme summary"}
	var respondInput string
	o := NewOrchestrator(&fakeWeb{}, docs, fakeFactory{model: plannerModel(`{"tool_choice":"doc_search","query":""}`, &respondInput)}, nil, "")

	reply, err := o.Process(context.Background(), userTurn("tell me about acme"))
	require.NoError(t, err)

	assert.Equal(t, wfmodel.ToolDocSearch, reply.Tool)
	assert.Equal(t, "tell me about acme", reply.Query)
	assert.Equal(t, []string{"tell me about acme"}, docs.queries)
	assert.Contains(t, respondInput, "Acme summary")
}

func TestOrchestratorRewritesDocSearchWhenUnavailable(t *testing.T) {
	web := &fakeWeb{results: []entity.WebResult{entity.NoWebResults()}}
	var planSystem string
	fm := &scriptedModel{reply: func(system, _ string, _ bool) (string, error) {
		if strings.HasPrefix(system, planPrompt) {
			planSystem = system
			return `{"tool_choice":"doc_search","query":"acme"}`, nil
		}
		return "answer", nil
	}}
	o := NewOrchestrator(web, &fakeDocumentRunner{}, fakeFactory{model: fm}, nil, "")

	reply, err := o.Process(context.Background(), userTurn("acme?"))
	require.NoError(t, err)

	assert.Equal(t, wfmodel.ToolWebSearch, reply.Tool)
	assert.Equal(t, []string{"acme"}, web.queries)
	assert.Contains(t, planSystem, docSearchUnavailableNote)
}

func TestOrchestratorPlanFailureRespondsWithoutTool(t *testing.T) {
	web := &fakeWeb{}
	var respondInput string
	o := NewOrchestrator(web, nil, fakeFactory{model: plannerModel(`not json`, &respondInput)}, nil, "")

	reply, err := o.Process(context.Background(), userTurn("thanks!"))
	require.NoError(t, err)

	assert.Equal(t, wfmodel.Reply{Content: "final answer", Tool: wfmodel.ToolNone}, reply)
	assert.Empty(t, web.queries)
	assert.Contains(t, respondInput, "Provide a conversational response based on the history.")
}

func TestOrchestratorErrorsBecomeApology(t *testing.T) {
	web := &fakeWeb{err: errors.New("search is down")}
	o := NewOrchestrator(web, nil, fakeFactory{model: plannerModel(`{"tool_choice":"web_search","query":"x"}`, nil)}, nil, "")

	reply, err := o.Process(context.Background(), userTurn("x?"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply.Content, "I'm sorry, an error occurred: "))
	assert.Contains(t, reply.Content, "search is down")
}

func TestOrchestratorValidatesMessages(t *testing.T) {
	o := NewOrchestrator(&fakeWeb{}, nil, fakeFactory{model: &scriptedModel{}}, nil, "")

	_, err := o.Process(context.Background(), nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))

	_, err = o.Process(context.Background(), []wfmodel.Message{{Role: "assistant", Content: "hello"}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))
}
