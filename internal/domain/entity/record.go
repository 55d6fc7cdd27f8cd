package entity

// RecordKind 记录来源形态
type RecordKind string

const (
	RecordKindJSON RecordKind = "json"
	RecordKindText RecordKind = "text"
)

// 丢弃原因
const (
	DiscardReasonEmpty    = "Chunk content was empty."
	DiscardReasonNoMatch  = "Query not found in content."
	DiscardPreviewRunes   = 1000
	discardPreviewEllipse = "..."
)

// Record 从片段中隔离出的、包含查询词的记录
// JSON 记录的 Content 为原始对象文本，文本记录为上下文窗口
type Record struct {
	SourceFile string     `json:"source_file"`
	FileType   string     `json:"file_type"`
	Kind       RecordKind `json:"kind"`
	Content    string     `json:"content"`
}

// DiscardEntry 未产出记录的片段
type DiscardEntry struct {
	Reason         string `json:"reason"`
	FilePath       string `json:"file_path"`
	ContentPreview string `json:"content_preview"`
}

// NewEmptyDiscard 内容为空的丢弃项
func NewEmptyDiscard(filePath string) DiscardEntry {
	return DiscardEntry{Reason: DiscardReasonEmpty, FilePath: filePath}
}

// NewNoMatchDiscard 未命中的丢弃项，预览截取前 1000 个字符
func NewNoMatchDiscard(filePath, content string) DiscardEntry {
	runes := []rune(content)
	if len(runes) > DiscardPreviewRunes {
		runes = runes[:DiscardPreviewRunes]
	}
	return DiscardEntry{
		Reason:         DiscardReasonNoMatch,
		FilePath:       filePath,
		ContentPreview: string(runes) + discardPreviewEllipse,
	}
}
