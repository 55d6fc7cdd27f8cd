package entity

import (
	"fmt"
	"time"
)

// InvestigationStatus 调查状态
type InvestigationStatus string

const (
	InvestigationPending   InvestigationStatus = "pending"
	InvestigationRunning   InvestigationStatus = "running"
	InvestigationCompleted InvestigationStatus = "completed"
	InvestigationFailed    InvestigationStatus = "failed"
	InvestigationCancelled InvestigationStatus = "cancelled"
)

// IsTerminal 是否为终态
func (s InvestigationStatus) IsTerminal() bool {
	return s == InvestigationCompleted || s == InvestigationFailed || s == InvestigationCancelled
}

// InvestigationProfile 调查参数
type InvestigationProfile struct {
	Description  string         `json:"description"`
	Query        string         `json:"query"`
	Size         int            `json:"size"`
	Page         int            `json:"page"`
	Include      map[string]any `json:"include"`
	ContextLines int            `json:"context_lines"`
}

// NewInvestigationProfile 按默认描述构建调查参数
func NewInvestigationProfile(query string, size, contextLines int) InvestigationProfile {
	return InvestigationProfile{
		Description:  fmt.Sprintf("Investigate '%s'", query),
		Query:        query,
		Size:         size,
		Include:      map[string]any{},
		ContextLines: contextLines,
	}
}

// ChunkQuery 转换为片段检索请求
func (p InvestigationProfile) ChunkQuery() ChunkQuery {
	include := p.Include
	if include == nil {
		include = map[string]any{}
	}
	return ChunkQuery{Query: p.Query, Size: p.Size, Page: p.Page, Include: include}
}

// InvestigationStats 流水线统计
type InvestigationStats struct {
	Chunks       int   `json:"chunks"`
	Records      int   `json:"records"`
	Discarded    int   `json:"discarded"`
	Triaged      int   `json:"triaged"`
	Primary      int   `json:"primary"`
	FailedTriage int   `json:"failed_triage"`
	PromptTokens int   `json:"prompt_tokens"`
	OutputTokens int   `json:"output_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// InvestigationResult 流水线产出
type InvestigationResult struct {
	Report     string             `json:"report"`
	Findings   []Finding          `json:"findings"`
	DiscardLog []DiscardEntry     `json:"discard_log"`
	Sources    []SourceRef        `json:"sources"`
	Stats      InvestigationStats `json:"stats"`
}

// SourceFiles 返回引用文件路径列表（按编号顺序）
func (r *InvestigationResult) SourceFiles() []string {
	if r == nil {
		return nil
	}
	files := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		files = append(files, s.FilePath)
	}
	return files
}

// Investigation 一次调查
type Investigation struct {
	ID           string               `json:"id"`
	Status       InvestigationStatus  `json:"status"`
	Profile      InvestigationProfile `json:"profile"`
	Result       *InvestigationResult `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	RetryCount   int                  `json:"retry_count"`
	DurationMs   int64                `json:"duration_ms,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// NewInvestigation 创建待执行的调查
func NewInvestigation(id string, profile InvestigationProfile) *Investigation {
	now := time.Now()
	return &Investigation{
		ID:        id,
		Status:    InvestigationPending,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start 开始执行，仅 pending 可开始
func (i *Investigation) Start() error {
	if i.Status != InvestigationPending {
		return fmt.Errorf("cannot start investigation in status %s", i.Status)
	}
	now := time.Now()
	i.Status = InvestigationRunning
	i.StartedAt = &now
	i.UpdatedAt = now
	return nil
}

// Complete 完成调查
func (i *Investigation) Complete(result *InvestigationResult) {
	now := time.Now()
	i.Status = InvestigationCompleted
	i.Result = result
	i.ErrorMessage = ""
	i.finish(now)
}

// Fail 调查失败
func (i *Investigation) Fail(errMsg string) {
	now := time.Now()
	i.Status = InvestigationFailed
	i.ErrorMessage = errMsg
	i.finish(now)
}

// Cancel 取消调查，终态不可取消
func (i *Investigation) Cancel() error {
	if i.Status.IsTerminal() {
		return fmt.Errorf("cannot cancel investigation in status %s", i.Status)
	}
	now := time.Now()
	i.Status = InvestigationCancelled
	i.finish(now)
	return nil
}

// Retry 失败后重新排队
func (i *Investigation) Retry() {
	i.RetryCount++
	i.Status = InvestigationPending
	i.StartedAt = nil
	i.CompletedAt = nil
	i.ErrorMessage = ""
	i.UpdatedAt = time.Now()
}

// CanRetry 检查是否可以重试
func (i *Investigation) CanRetry(maxRetries int) bool {
	return i.Status == InvestigationFailed && i.RetryCount < maxRetries
}

func (i *Investigation) finish(now time.Time) {
	i.CompletedAt = &now
	i.UpdatedAt = now
	if i.StartedAt != nil {
		i.DurationMs = now.Sub(*i.StartedAt).Milliseconds()
	}
}
