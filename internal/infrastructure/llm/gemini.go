package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"agent-smith-api/internal/workflow/port"
)

const geminiTypeName = "Gemini"

// GeminiConfig Gemini ChatModel 配置
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// GeminiChatModel 以 eino ChatModel 接口封装 Google GenAI SDK
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature *float32
}

// NewGeminiChatModel 创建 Gemini ChatModel
func NewGeminiChatModel(ctx context.Context, cfg GeminiConfig) (*GeminiChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(cfg.Timeout)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	m := &GeminiChatModel{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
	if cfg.Temperature > 0 {
		m.temperature = genai.Ptr(float32(cfg.Temperature))
	}
	return m, nil
}

// Generate 实现 model.BaseChatModel
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (out *schema.Message, err error) {
	ctx = callbacks.EnsureRunInfo(ctx, m.GetType(), components.ComponentOfChatModel)

	common := model.GetCommonOptions(&model.Options{
		Model:       &m.model,
		Temperature: m.temperature,
		MaxTokens:   &m.maxTokens,
	}, opts...)
	format := model.GetImplSpecificOptions(&port.ResponseFormatOptions{}, opts...)

	modelName := m.model
	if common.Model != nil && *common.Model != "" {
		modelName = *common.Model
	}

	cbConfig := &model.Config{Model: modelName}
	if common.MaxTokens != nil {
		cbConfig.MaxTokens = *common.MaxTokens
	}
	if common.Temperature != nil {
		cbConfig.Temperature = *common.Temperature
	}
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: cbConfig})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	system, contents := toGenAIContents(input)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: no user or assistant messages to send")
	}

	gc := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       common.Temperature,
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(*common.MaxTokens)
	}
	if common.TopP != nil {
		gc.TopP = common.TopP
	}
	if len(common.Stop) > 0 {
		gc.StopSequences = common.Stop
	}
	if format.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := m.client.Models.GenerateContent(ctx, modelName, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	out = schema.AssistantMessage(resp.Text(), nil)
	out.ResponseMeta = responseMeta(resp)

	var usage *model.TokenUsage
	if out.ResponseMeta.Usage != nil {
		usage = &model.TokenUsage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		}
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{Message: out, Config: cbConfig, TokenUsage: usage})
	return out, nil
}

// Stream 以单个分片返回完整结果
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// GetType 实现 components.Typer
func (m *GeminiChatModel) GetType() string { return geminiTypeName }

// IsCallbacksEnabled 回调由 Generate 自行触发
func (m *GeminiChatModel) IsCallbacksEnabled() bool { return true }

// toGenAIContents system 消息合并为 SystemInstruction，assistant 映射为 model 角色
func toGenAIContents(msgs []*schema.Message) (*genai.Content, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if s := strings.TrimSpace(msg.Content); s != "" {
				systemParts = append(systemParts, s)
			}
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	return system, contents
}

func responseMeta(resp *genai.GenerateContentResponse) *schema.ResponseMeta {
	meta := &schema.ResponseMeta{}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		meta.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		meta.Usage = &schema.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return meta
}
