package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/config"
)

func TestFindingsSchema(t *testing.T) {
	s := FindingsSchema(768)
	assert.Equal(t, CollectionFindings, s.CollectionName)
	require.Len(t, s.Fields, 9)
	assert.True(t, s.Fields[0].PrimaryKey)
	assert.Equal(t, fieldID, s.Fields[0].Name)
	assert.Equal(t, entity.FieldTypeFloatVector, s.Fields[1].DataType)
	assert.Equal(t, "768", s.Fields[1].TypeParams["dim"])

	def := FindingsSchema(0)
	assert.Equal(t, "1536", def.Fields[1].TypeParams["dim"])
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abcdef", 2))
	// 每个汉字 3 字节
	assert.Equal(t, "调", truncateRunes("调查", 4))
}

func TestInvestigationFilter(t *testing.T) {
	assert.Equal(t, `investigation_id == "abc"`, investigationFilter("abc"))
	assert.Equal(t, `investigation_id == "a\"b"`, investigationFilter(`a"b`))
}

func TestCollectionNameAndMetric(t *testing.T) {
	c := &Client{config: &config.MilvusConfig{CollectionPrefix: "smith", MetricType: "ip"}}
	assert.Equal(t, "smith_findings", c.CollectionName(CollectionFindings))

	r := NewRepository(c, 0)
	assert.Equal(t, DefaultVectorDimension, r.dim)
	assert.Equal(t, entity.IP, r.metricType())

	c.config.MetricType = ""
	assert.Equal(t, entity.COSINE, r.metricType())

	assert.Error(t, r.EnsureFindingsCollection(t.Context()))
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.HealthCheck(t.Context()), errNotConfigured)

	disabled, err := NewClient(t.Context(), &config.MilvusConfig{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, disabled)
}
