package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Assessment 分诊结论
type Assessment string

const (
	AssessmentPrimary    Assessment = "Primary Record"
	AssessmentContextual Assessment = "Contextual Mention"
)

// Confidence 分诊置信度
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
)

// Finding 经过分诊的记录
type Finding struct {
	SourceFile    string         `json:"source_file"`
	FileType      string         `json:"file_type"`
	Assessment    Assessment     `json:"assessment"`
	Confidence    Confidence     `json:"confidence"`
	Justification string         `json:"justification"`
	AssociatedPII map[string]any `json:"associated_pii"`
	Record        string         `json:"record,omitempty"`
}

// IsPrimary 是否为主记录
func (f Finding) IsPrimary() bool {
	return f.Assessment == AssessmentPrimary
}

// PIISummary 按键排序输出 "k: v, k2: v2"
func (f Finding) PIISummary() string {
	if len(f.AssociatedPII) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f.AssociatedPII))
	for k := range f.AssociatedPII {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+piiValueText(f.AssociatedPII[k]))
	}
	return strings.Join(parts, ", ")
}

// piiValueText 标量直接输出，对象和数组输出为 JSON
func piiValueText(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool, float64, float32, int, int64, int32, json.Number:
		return fmt.Sprint(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// NormalizeConfidence 将大小写不一的置信度归一，无法识别时返回空
func NormalizeConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	default:
		return ""
	}
}

// NormalizeAssessment 归一分诊结论，无法识别时原样保留
func NormalizeAssessment(s string) Assessment {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "primary record":
		return AssessmentPrimary
	case "contextual mention":
		return AssessmentContextual
	default:
		return Assessment(trimmed)
	}
}

// rank 越小越靠前
func (f Finding) rank() int {
	r := 4
	switch f.Assessment {
	case AssessmentPrimary:
		r = 0
	case AssessmentContextual:
		r = 2
	}
	if f.Confidence != ConfidenceHigh {
		r++
	}
	return r
}

// RankFindings 稳定排序：主记录优先，同类中 High 优先
func RankFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].rank() < findings[j].rank()
	})
}

// SourceRef 引用编号与文件路径
type SourceRef struct {
	Index    int    `json:"index"`
	FilePath string `json:"file_path"`
}

// SimilarFinding 向量检索命中的历史主记录
type SimilarFinding struct {
	ID              string     `json:"id"`
	InvestigationID string     `json:"investigation_id"`
	Query           string     `json:"query"`
	SourceFile      string     `json:"source_file"`
	Assessment      Assessment `json:"assessment"`
	Confidence      Confidence `json:"confidence"`
	Justification   string     `json:"justification"`
	Score           float32    `json:"score"`
}
