package node

import (
	"fmt"
	"sort"
	"strings"

	"agent-smith-api/internal/domain/entity"
)

const (
	// NoFindingsReport 没有任何分诊结果时的报告正文
	NoFindingsReport = "Investigation Complete: No Primary Records or meaningful connections were found for this query."
	// NoPrimaryRecords 没有主记录时填入提示词的占位文本
	NoPrimaryRecords = "No primary records were identified."
	noDiscards       = "None"
)

// ReportInputs 报告提示词所需的确定性文本
type ReportInputs struct {
	Sources         []entity.SourceRef
	PrimaryFindings string
	SourceList      string
	DiscardLog      string
}

// BuildSourceMap 主记录的来源文件去重、升序编号（从 1 开始）
func BuildSourceMap(findings []entity.Finding) []entity.SourceRef {
	seen := make(map[string]struct{})
	var files []string
	for _, f := range findings {
		if !f.IsPrimary() {
			continue
		}
		if _, ok := seen[f.SourceFile]; ok {
			continue
		}
		seen[f.SourceFile] = struct{}{}
		files = append(files, f.SourceFile)
	}
	sort.Strings(files)

	refs := make([]entity.SourceRef, 0, len(files))
	for i, file := range files {
		refs = append(refs, entity.SourceRef{Index: i + 1, FilePath: file})
	}
	return refs
}

// BuildReportInputs 生成主记录列表、来源列表与丢弃日志文本
func BuildReportInputs(findings []entity.Finding, discards []entity.DiscardEntry) ReportInputs {
	sources := BuildSourceMap(findings)
	index := make(map[string]int, len(sources))
	for _, ref := range sources {
		index[ref.FilePath] = ref.Index
	}

	var primary strings.Builder
	for _, f := range findings {
		if !f.IsPrimary() {
			continue
		}
		fmt.Fprintf(&primary, "- Justification: %s [^%d]\n", f.Justification, index[f.SourceFile])
		if pii := f.PIISummary(); pii != "" {
			fmt.Fprintf(&primary, "  - Associated PII: %s\n", pii)
		}
	}
	primaryText := primary.String()
	if primaryText == "" {
		primaryText = NoPrimaryRecords
	}

	lines := make([]string, 0, len(sources))
	for _, ref := range sources {
		lines = append(lines, fmt.Sprintf("[%d] %s", ref.Index, ref.FilePath))
	}

	return ReportInputs{
		Sources:         sources,
		PrimaryFindings: primaryText,
		SourceList:      strings.Join(lines, "\n"),
		DiscardLog:      FormatDiscardLog(discards),
	}
}

// FormatDiscardLog 每条一行 "- 原因 (File: 路径)"，为空时返回 None
func FormatDiscardLog(discards []entity.DiscardEntry) string {
	if len(discards) == 0 {
		return noDiscards
	}
	lines := make([]string, 0, len(discards))
	for _, d := range discards {
		lines = append(lines, fmt.Sprintf("- %s (File: %s)", d.Reason, d.FilePath))
	}
	return strings.Join(lines, "\n")
}

// EmptyReport 没有分诊结果时的报告，丢弃日志非空时附在末尾
func EmptyReport(discards []entity.DiscardEntry) string {
	if len(discards) == 0 {
		return NoFindingsReport
	}
	return NoFindingsReport + "\n\n**Discarded Chunks Log:**\n" + FormatDiscardLog(discards)
}

// ReportFailure LLM 生成报告失败时的正文
func ReportFailure(err error) string {
	return fmt.Sprintf("Could not generate report due to an error: %v", err)
}
