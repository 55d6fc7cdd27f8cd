package port

import (
	"context"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按名称取得已配置的模型，空名称取默认供应商
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// ResponseFormatOptions 非 OpenAI 协议的实现读取的输出格式
type ResponseFormatOptions struct {
	JSON bool
}

// WithJSONResponse 要求模型只输出 JSON 对象
func WithJSONResponse() []model.Option {
	return []model.Option{
		openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}),
		model.WrapImplSpecificOptFn(func(o *ResponseFormatOptions) {
			o.JSON = true
		}),
	}
}
