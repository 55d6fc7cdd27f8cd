package node

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"agent-smith-api/internal/domain/entity"
	wfmodel "agent-smith-api/internal/workflow/model"
)

// MaxSelectedDocuments 每次最多取回的文档数
const MaxSelectedDocuments = 3

const (
	// NoDocumentsSelected 没有选中任何文档时的回答
	NoDocumentsSelected = "I searched for relevant documents but did not find any that seemed to match your query."
	// NoDocumentContent 选中了文档但全文均获取失败时的回答
	NoDocumentContent = "I found some initial document results, but was unable to retrieve their full content for a detailed answer."
)

// HasUsableDocuments 结果为空或只有哨兵时返回 false
func HasUsableDocuments(docs []entity.DocumentSummary) bool {
	return len(docs) > 0 && !docs[0].IsPlaceholder()
}

// FormatDocumentResults 以缩进 JSON 渲染检索结果供选择提示词使用
func FormatDocumentResults(docs []entity.DocumentSummary) (string, error) {
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document results: %w", err)
	}
	return string(b), nil
}

// ParseDocSelection 解析 {"doc_ids": [...]}，仅保留检索结果中存在的 ID，最多 3 个
// 无法解析时返回空选择
func ParseDocSelection(raw string, docs []entity.DocumentSummary) []string {
	body := ExtractJSONObject(StripCodeFence(raw))
	if !gjson.Valid(body) {
		return nil
	}
	ids := gjson.Get(body, "doc_ids")
	if !ids.IsArray() {
		return nil
	}

	known := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		known[d.DocID] = struct{}{}
	}

	var selected []string
	seen := make(map[string]struct{})
	ids.ForEach(func(_, v gjson.Result) bool {
		id := strings.TrimSpace(v.String())
		if _, ok := known[id]; !ok {
			return true
		}
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
		selected = append(selected, id)
		return len(selected) < MaxSelectedDocuments
	})
	return selected
}

// RenderDocument 按固定分隔格式渲染一篇全文
func RenderDocument(doc *entity.Document) string {
	return fmt.Sprintf("--- Document Start ---\nTitle: %s\nID: %s\n\nContent:\n%s\n--- Document End ---\n\n",
		doc.Title, doc.DocID, doc.Content)
}

// FormatWebResults 每条 Title/Snippet/URL 三行，条目间空行分隔
func FormatWebResults(results []entity.WebResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("Title: %s\nSnippet: %s\nURL: %s", r.Title, r.Snippet, r.URL))
	}
	return strings.Join(parts, "\n\n")
}

// FormatHistory 每条消息一行 "role: content"
func FormatHistory(messages []wfmodel.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// ParsePlan 解析规划输出。无法解析或工具未知时返回 none 与空查询
func ParsePlan(raw string) (wfmodel.Plan, error) {
	body := ExtractJSONObject(StripCodeFence(raw))
	if !gjson.Valid(body) || !gjson.Parse(body).IsObject() {
		return wfmodel.Plan{Tool: wfmodel.ToolNone}, fmt.Errorf("plan response is not a JSON object")
	}
	doc := gjson.Parse(body)
	choice := doc.Get("tool_choice").String()
	if choice == "" {
		choice = string(wfmodel.ToolNone)
	}
	tool, ok := wfmodel.ParseToolChoice(choice)
	if !ok {
		return wfmodel.Plan{Tool: wfmodel.ToolNone}, fmt.Errorf("unknown tool choice %q", choice)
	}
	return wfmodel.Plan{Tool: tool, Query: strings.TrimSpace(doc.Get("query").String())}, nil
}
