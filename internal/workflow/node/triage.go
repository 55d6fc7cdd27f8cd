package node

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"agent-smith-api/internal/domain/entity"
)

// ParseTriageResponse 解析分诊模型输出为 Finding
// 输出须为 JSON 对象；associated_pii 不是对象时视为空
func ParseTriageResponse(raw string, record entity.Record) (entity.Finding, error) {
	body := ExtractJSONObject(StripCodeFence(raw))
	if !gjson.Valid(body) {
		return entity.Finding{}, fmt.Errorf("triage response is not valid JSON")
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return entity.Finding{}, fmt.Errorf("triage response is not a JSON object")
	}

	finding := entity.Finding{
		SourceFile:    record.SourceFile,
		FileType:      record.FileType,
		Assessment:    entity.NormalizeAssessment(doc.Get("assessment").String()),
		Confidence:    entity.NormalizeConfidence(doc.Get("confidence").String()),
		Justification: strings.TrimSpace(doc.Get("justification").String()),
		AssociatedPII: map[string]any{},
		Record:        record.Content,
	}
	if pii := doc.Get("associated_pii"); pii.IsObject() {
		if m, ok := pii.Value().(map[string]any); ok {
			finding.AssociatedPII = m
		}
	}
	return finding, nil
}

// StripCodeFence 去掉模型常见的 ```json 包裹
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
