package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	llmctx "agent-smith-api/internal/domain/service"
	wfmodel "agent-smith-api/internal/workflow/model"
	wfnode "agent-smith-api/internal/workflow/node"
	workflowport "agent-smith-api/internal/workflow/port"
	"agent-smith-api/pkg/logger"
)

// generate 调用一次模型。jsonMode 下先要求 JSON 输出，供应商不支持 response_format 时退回纯提示词
func generate(ctx context.Context, chatModel model.BaseChatModel, msgs []*schema.Message, jsonMode bool) (*schema.Message, error) {
	var opts []model.Option
	if jsonMode {
		opts = workflowport.WithJSONResponse()
	}

	outMsg, err := chatModel.Generate(ctx, msgs, opts...)
	if err != nil && jsonMode && wfnode.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm response_format not supported, fallback to prompt-only",
			"workflow", llmctx.LLMScopeFrom(ctx).Workflow,
			"error", err.Error(),
		)
		outMsg, err = chatModel.Generate(ctx, msgs)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

// usageTracker 汇总一次运行内多次模型调用的 token 用量，可并发调用
type usageTracker struct {
	mu   sync.Mutex
	meta wfmodel.LLMUsageMeta
}

func newUsageTracker(provider string) *usageTracker {
	return &usageTracker{meta: wfmodel.LLMUsageMeta{Provider: strings.TrimSpace(provider)}}
}

func (u *usageTracker) observe(msg *schema.Message) {
	if u == nil || msg == nil {
		return
	}
	meta := wfmodel.LLMUsageMeta{GeneratedAt: time.Now().UTC()}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		meta.PromptTokens = msg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = msg.ResponseMeta.Usage.CompletionTokens
	}
	u.mu.Lock()
	u.meta.Add(meta)
	u.mu.Unlock()
}

func (u *usageTracker) snapshot() wfmodel.LLMUsageMeta {
	if u == nil {
		return wfmodel.LLMUsageMeta{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.meta
}
