package node

import (
	"strings"

	"github.com/tidwall/gjson"
)

// TruncateByRunes 按字符数截断，maxRunes<=0 返回空串
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	seen := 0
	for i := range s {
		if seen == maxRunes {
			return s[:i]
		}
		seen++
	}
	return s
}

// ExtractJSONObject 从模型输出中找出第一个合法的 JSON 对象或数组
// 找不到时返回去除首尾空白的原文，由调用方报解析错误
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	for from := 0; from < len(raw); {
		start := strings.IndexAny(raw[from:], "{[")
		if start < 0 {
			break
		}
		start += from
		if end := matchingClose(raw, start); end > start {
			if candidate := raw[start : end+1]; gjson.Valid(candidate) {
				return candidate
			}
		}
		from = start + 1
	}
	return raw
}

// matchingClose 返回与 s[start] 配对的闭合括号下标，跳过字符串字面量
func matchingClose(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// 供应商拒绝 response_format 参数时的错误特征
var responseFormatRejections = [][]string{
	{"response_format"},
	{"response_schema"},
	{"json_schema"},
	{"json mode"},
	{"unknown parameter", "response"},
	{"unsupported", "response"},
	{"response_mime_type"},
	{"responsemimetype"},
}

// IsResponseFormatUnsupportedError 判断错误是否因模型不支持 JSON 输出模式
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keywords := range responseFormatRejections {
		matched := true
		for _, k := range keywords {
			if !strings.Contains(msg, k) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
