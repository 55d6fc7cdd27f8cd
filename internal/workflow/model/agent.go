package model

// ToolChoice 编排器选择的工具
type ToolChoice string

const (
	ToolWebSearch ToolChoice = "web_search"
	ToolDocSearch ToolChoice = "doc_search"
	ToolNone      ToolChoice = "none"
)

// ParseToolChoice 无法识别时返回 ToolNone
func ParseToolChoice(s string) (ToolChoice, bool) {
	switch ToolChoice(s) {
	case ToolWebSearch, ToolDocSearch, ToolNone:
		return ToolChoice(s), true
	default:
		return ToolNone, false
	}
}

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Plan 规划结果
type Plan struct {
	Tool  ToolChoice `json:"tool_choice"`
	Query string     `json:"query"`
}

// Reply 编排器一轮的回复
type Reply struct {
	Content string     `json:"content"`
	Tool    ToolChoice `json:"tool"`
	Query   string     `json:"query,omitempty"`
}
