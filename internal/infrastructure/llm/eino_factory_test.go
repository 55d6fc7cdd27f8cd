package llm

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/config"
)

type stubModel struct{}

func (stubModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("ok", nil), nil
}

func (stubModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage("ok", nil)}), nil
}

func newTestFactory() *EinoFactory {
	return NewEinoFactory(&config.Config{LLM: config.LLMConfig{
		DefaultProvider: "primary",
		Providers: map[string]config.ProviderConfig{
			"primary": {Kind: "gemini", Model: "gemini-1.5-flash"},
			"weird":   {Kind: "carrier-pigeon"},
		},
	}})
}

func TestEinoFactoryRegisteredModelWins(t *testing.T) {
	f := newTestFactory()
	f.Register("primary", stubModel{})

	m, err := f.Default(context.Background())
	require.NoError(t, err)
	out, err := m.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Content)
}

func TestEinoFactoryErrors(t *testing.T) {
	f := newTestFactory()

	_, err := f.Get(context.Background(), "missing")
	assert.ErrorContains(t, err, "provider missing not found")

	_, err = f.Get(context.Background(), "weird")
	assert.ErrorContains(t, err, "unsupported provider kind")

	// gemini 缺少 api key
	_, err = f.Get(context.Background(), "primary")
	assert.ErrorContains(t, err, "api key is required")
}

func TestToGenAIContents(t *testing.T) {
	system, contents := toGenAIContents([]*schema.Message{
		schema.SystemMessage("be terse"),
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello", nil),
		schema.SystemMessage("json only"),
		nil,
	})

	require.NotNil(t, system)
	require.Len(t, system.Parts, 1)
	assert.Equal(t, "be terse\n\njson only", system.Parts[0].Text)

	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}

func TestProviderKind(t *testing.T) {
	assert.Equal(t, KindGemini, providerKind("gemini-flash", ""))
	assert.Equal(t, KindOpenAI, providerKind("deepseek", ""))
	assert.Equal(t, KindGemini, providerKind("primary", " Gemini "))
	assert.Equal(t, "carrier-pigeon", providerKind("weird", "carrier-pigeon"))
}
