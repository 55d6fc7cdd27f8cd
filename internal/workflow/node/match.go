package node

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"agent-smith-api/internal/domain/entity"
)

// FindRelevantObjects 递归查找包含 query 的最内层 JSON 对象（大小写不敏感）。
// 对象的子值有命中时只返回子值的命中，否则当任一值的字符串形式包含 query 时返回对象本身；
// 数组拼接各元素的命中；标量不产出。结果按文档顺序排列。
func FindRelevantObjects(doc gjson.Result, query string) []gjson.Result {
	return findObjects(doc, strings.ToLower(query))
}

func findObjects(v gjson.Result, needle string) []gjson.Result {
	switch {
	case v.IsObject():
		var children []gjson.Result
		selfMatch := false
		v.ForEach(func(_, val gjson.Result) bool {
			children = append(children, findObjects(val, needle)...)
			if !selfMatch && strings.Contains(strings.ToLower(valueText(val)), needle) {
				selfMatch = true
			}
			return true
		})
		if len(children) > 0 {
			return children
		}
		if selfMatch {
			return []gjson.Result{v}
		}
		return nil
	case v.IsArray():
		var out []gjson.Result
		v.ForEach(func(_, item gjson.Result) bool {
			out = append(out, findObjects(item, needle)...)
			return true
		})
		return out
	default:
		return nil
	}
}

// valueText 返回值解码后的文本，对象和数组拼接各键与元素的解码文本
func valueText(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsObject(), v.IsArray():
		var b strings.Builder
		v.ForEach(func(key, val gjson.Result) bool {
			if key.Type == gjson.String {
				b.WriteString(key.Str)
				b.WriteString(": ")
			}
			b.WriteString(valueText(val))
			b.WriteString(", ")
			return true
		})
		return b.String()
	default:
		return v.Raw
	}
}

// IsolateRelevantLines 返回每个包含 query 的行及其前后 contextLines 行组成的窗口。
// 相互重叠的窗口各自独立输出。
func IsolateRelevantLines(content, query string, contextLines int) []string {
	if contextLines < 0 {
		contextLines = 0
	}
	lines := splitLines(content)
	needle := strings.ToLower(query)

	var windows []string
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		start := max(0, i-contextLines)
		end := min(len(lines), i+contextLines+1)
		windows = append(windows, strings.Join(lines[start:end], "\n"))
	}
	return windows
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// ParseChunks 将检索片段拆成与 query 相关的记录，未产出记录的片段写入丢弃日志
func ParseChunks(chunks []entity.Chunk, query string, contextLines int) ([]entity.Record, []entity.DiscardEntry) {
	var records []entity.Record
	var discards []entity.DiscardEntry

	for _, chunk := range chunks {
		path := chunk.Path()
		mime := chunk.MimeType()
		if chunk.Content == "" {
			discards = append(discards, entity.NewEmptyDiscard(path))
			continue
		}

		var found []entity.Record
		if chunk.IsJSON() && gjson.Valid(chunk.Content) {
			for _, obj := range FindRelevantObjects(gjson.Parse(chunk.Content), query) {
				found = append(found, entity.Record{
					SourceFile: path,
					FileType:   mime,
					Kind:       entity.RecordKindJSON,
					Content:    obj.Raw,
				})
			}
		} else {
			for _, window := range IsolateRelevantLines(chunk.Content, query, contextLines) {
				found = append(found, entity.Record{
					SourceFile: path,
					FileType:   mime,
					Kind:       entity.RecordKindText,
					Content:    window,
				})
			}
		}

		if len(found) == 0 {
			discards = append(discards, entity.NewNoMatchDiscard(path, chunk.Content))
			continue
		}
		records = append(records, found...)
	}
	return records, discards
}

// RenderRecord JSON 记录解码转义后缩进输出，文本记录原样返回
func RenderRecord(r entity.Record) string {
	if r.Kind != entity.RecordKindJSON || !gjson.Valid(r.Content) {
		return r.Content
	}
	var buf bytes.Buffer
	writeDecoded(&buf, gjson.Parse(r.Content))
	return strings.TrimRight(string(pretty.Pretty(buf.Bytes())), "\n")
}

// writeDecoded 按原键序重写 JSON，字符串只保留必要的转义
func writeDecoded(buf *bytes.Buffer, v gjson.Result) {
	switch {
	case v.IsObject():
		buf.WriteByte('{')
		first := true
		v.ForEach(func(key, val gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeString(buf, key.Str)
			buf.WriteByte(':')
			writeDecoded(buf, val)
			return true
		})
		buf.WriteByte('}')
	case v.IsArray():
		buf.WriteByte('[')
		first := true
		v.ForEach(func(_, val gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeDecoded(buf, val)
			return true
		})
		buf.WriteByte(']')
	case v.Type == gjson.String:
		writeString(buf, v.Str)
	default:
		buf.WriteString(v.Raw)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode 会追加换行
	buf.Truncate(buf.Len() - 1)
}
