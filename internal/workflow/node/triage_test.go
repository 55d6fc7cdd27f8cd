package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/domain/entity"
)

func TestParseTriageResponse(t *testing.T) {
	record := entity.Record{SourceFile: "users.json", FileType: "application/json", Kind: entity.RecordKindJSON, Content: `{"u":"alice"}`}

	raw := "```json\n{\"assessment\":\"primary record\",\"confidence\":\"HIGH\",\"justification\":\" Profile of alice. \",\"associated_pii\":{\"email\":\"a@x.io\"}}\n```"
	f, err := ParseTriageResponse(raw, record)
	require.NoError(t, err)
	assert.Equal(t, entity.AssessmentPrimary, f.Assessment)
	assert.Equal(t, entity.ConfidenceHigh, f.Confidence)
	assert.Equal(t, "Profile of alice.", f.Justification)
	assert.Equal(t, map[string]any{"email": "a@x.io"}, f.AssociatedPII)
	assert.Equal(t, "users.json", f.SourceFile)
	assert.Equal(t, `{"u":"alice"}`, f.Record)
}

func TestParseTriageResponseLenientFields(t *testing.T) {
	f, err := ParseTriageResponse(`Sure! {"assessment":"Something Else","confidence":"low","associated_pii":"none"}`, entity.Record{})
	require.NoError(t, err)
	assert.Equal(t, entity.Assessment("Something Else"), f.Assessment)
	assert.False(t, f.IsPrimary())
	assert.Equal(t, entity.Confidence(""), f.Confidence)
	assert.Empty(t, f.AssociatedPII)
}

func TestParseTriageResponseErrors(t *testing.T) {
	_, err := ParseTriageResponse("not json at all", entity.Record{})
	assert.Error(t, err)

	_, err = ParseTriageResponse(`["a","b"]`, entity.Record{})
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`  {"a":1} `))
}
