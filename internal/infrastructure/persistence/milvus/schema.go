// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionFindings 调查主记录集合
	CollectionFindings = "findings"

	// DefaultVectorDimension 未配置维度时使用
	DefaultVectorDimension = 1536

	fieldID              = "id"
	fieldVector          = "vector"
	fieldInvestigationID = "investigation_id"
	fieldQuery           = "query"
	fieldSourceFile      = "source_file"
	fieldAssessment      = "assessment"
	fieldConfidence      = "confidence"
	fieldJustification   = "justification"
	fieldCreatedAt       = "created_at"
)

func varChar(name string, maxLen int) *entity.Field {
	return &entity.Field{
		Name:     name,
		DataType: entity.FieldTypeVarChar,
		TypeParams: map[string]string{
			"max_length": strconv.Itoa(maxLen),
		},
	}
}

// FindingsSchema 主记录 Collection Schema
func FindingsSchema(dim int) *entity.Schema {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	id := varChar(fieldID, 64)
	id.PrimaryKey = true

	return &entity.Schema{
		CollectionName: CollectionFindings,
		Description:    "Primary records surfaced by investigations",
		Fields: []*entity.Field{
			id,
			{
				Name:     fieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			varChar(fieldInvestigationID, 64),
			varChar(fieldQuery, 1024),
			varChar(fieldSourceFile, 1024),
			varChar(fieldAssessment, 64),
			varChar(fieldConfidence, 16),
			varChar(fieldJustification, 8192),
			{
				Name:     fieldCreatedAt,
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// FindingRow 写入 findings 集合的一行
type FindingRow struct {
	ID              string    `json:"id"`
	Vector          []float32 `json:"vector"`
	InvestigationID string    `json:"investigation_id"`
	Query           string    `json:"query"`
	SourceFile      string    `json:"source_file"`
	Assessment      string    `json:"assessment"`
	Confidence      string    `json:"confidence"`
	Justification   string    `json:"justification"`
	CreatedAt       int64     `json:"created_at"`
}

// FindingHit 检索命中
type FindingHit struct {
	ID              string
	Score           float32
	InvestigationID string
	Query           string
	SourceFile      string
	Assessment      string
	Confidence      string
	Justification   string
}

// truncateRunes 避免超过 VarChar max_length
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) > max {
		r = r[:max]
	}
	out := string(r)
	for len(out) > max {
		r = r[:len(r)-1]
		out = string(r)
	}
	return out
}
