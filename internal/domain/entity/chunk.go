package entity

import "strings"

const (
	// DefaultMimeType 片段缺失 MIME 时的默认值
	DefaultMimeType = "text/plain"
	// UnknownFilePath 片段缺失路径时的占位值
	UnknownFilePath = "N/A"
)

// ChunkFile 片段所属文件的元数据
type ChunkFile struct {
	FilePath string `json:"file_path"`
	MimeType string `json:"mime_type"`
}

// Chunk 片段检索 API 返回的一段内容
type Chunk struct {
	Content string    `json:"chunk_content"`
	File    ChunkFile `json:"file"`
}

// Path 返回文件路径，缺失时为 N/A
func (c Chunk) Path() string {
	if c.File.FilePath == "" {
		return UnknownFilePath
	}
	return c.File.FilePath
}

// MimeType 返回 MIME 类型，缺失时为 text/plain
func (c Chunk) MimeType() string {
	if c.File.MimeType == "" {
		return DefaultMimeType
	}
	return c.File.MimeType
}

// IsJSON 判断片段是否声明为 JSON 内容
func (c Chunk) IsJSON() bool {
	return strings.Contains(strings.ToLower(c.MimeType()), "json")
}

// ChunkQuery 片段检索请求
type ChunkQuery struct {
	Query   string         `json:"query"`
	Size    int            `json:"size"`
	Page    int            `json:"page"`
	Include map[string]any `json:"include"`
}
