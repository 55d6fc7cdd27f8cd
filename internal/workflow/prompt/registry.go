// Package prompt 管理嵌入式提示词模板
//
// 每个提示词由 templates/<id>.system.txt 与 templates/<id>.user.txt 组成，
// 使用 FString 语法渲染，字面量花括号需写成 {{ }}。
package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptPlanV1          PromptID = "plan_v1"
	PromptRespondV1       PromptID = "respond_v1"
	PromptDocSelectV1     PromptID = "doc_select_v1"
	PromptDocSynthesizeV1 PromptID = "doc_synthesize_v1"
	PromptTriageV1        PromptID = "triage_v1"
	PromptReportV1        PromptID = "report_v1"
)

var knownPrompts = []PromptID{
	PromptPlanV1,
	PromptRespondV1,
	PromptDocSelectV1,
	PromptDocSynthesizeV1,
	PromptTriageV1,
	PromptReportV1,
}

type templateLoader func() (einoprompt.ChatTemplate, error)

// Registry 首次使用时解析模板，之后复用同一实例
type Registry struct {
	loaders map[PromptID]templateLoader
}

func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[PromptID]templateLoader, len(knownPrompts))}
	for _, id := range knownPrompts {
		r.loaders[id] = sync.OnceValues(func() (einoprompt.ChatTemplate, error) {
			return loadTemplate(id)
		})
	}
	return r
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	load, ok := r.loaders[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return load()
}

// Format 渲染为 system、user 两条消息
func (r *Registry) Format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}

func loadTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	system, err := readTemplate(id, "system")
	if err != nil {
		return nil, err
	}
	user, err := readTemplate(id, "user")
	if err != nil {
		return nil, err
	}
	return einoprompt.FromMessages(schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	), nil
}

func readTemplate(id PromptID, part string) (string, error) {
	b, err := templatesFS.ReadFile(fmt.Sprintf("templates/%s.%s.txt", id, part))
	if err != nil {
		return "", fmt.Errorf("read prompt %s (%s): %w", id, part, err)
	}
	return strings.TrimSpace(string(b)), nil
}
