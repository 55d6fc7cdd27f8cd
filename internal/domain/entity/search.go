package entity

// NoResultsTitle 检索无结果时哨兵结果的标题
const NoResultsTitle = "No Results"

// WebResult 公网搜索结果
type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// NoWebResults 返回公网搜索无结果时的哨兵结果
func NoWebResults() WebResult {
	return WebResult{Title: NoResultsTitle, Snippet: "No web results found.", URL: ""}
}

// IsPlaceholder 判断是否为无结果哨兵
func (r WebResult) IsPlaceholder() bool {
	return r.Title == NoResultsTitle && r.URL == ""
}

// DocumentSummary 文档检索 API 返回的摘要
type DocumentSummary struct {
	DocID   string `json:"docId"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// NoDocuments 返回文档检索无结果时的哨兵摘要
func NoDocuments() DocumentSummary {
	return DocumentSummary{DocID: "N/A", Title: NoResultsTitle, Summary: "No documents found."}
}

// IsPlaceholder 判断是否为无结果哨兵
func (d DocumentSummary) IsPlaceholder() bool {
	return d.Title == NoResultsTitle && d.DocID == "N/A"
}

// Document 完整文档
type Document struct {
	DocID   string `json:"docId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
