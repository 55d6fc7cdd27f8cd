package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvestigationLifecycle(t *testing.T) {
	inv := NewInvestigation("inv-1", NewInvestigationProfile("jane@example.com", 30, 1))
	assert.Equal(t, InvestigationPending, inv.Status)
	assert.Equal(t, "Investigate 'jane@example.com'", inv.Profile.Description)

	require.NoError(t, inv.Start())
	require.NotNil(t, inv.StartedAt)
	assert.Error(t, inv.Start(), "running investigation cannot start again")

	inv.Fail("chunk search failed")
	assert.Equal(t, InvestigationFailed, inv.Status)
	assert.True(t, inv.CanRetry(2))

	inv.Retry()
	assert.Equal(t, InvestigationPending, inv.Status)
	assert.Equal(t, 1, inv.RetryCount)
	assert.Empty(t, inv.ErrorMessage)

	require.NoError(t, inv.Start())
	inv.Complete(&InvestigationResult{Report: "done", Sources: []SourceRef{{Index: 1, FilePath: "a.json"}}})
	assert.True(t, inv.Status.IsTerminal())
	assert.NotNil(t, inv.CompletedAt)
	assert.Equal(t, []string{"a.json"}, inv.Result.SourceFiles())
	assert.Error(t, inv.Cancel())
}

func TestInvestigationCancelPending(t *testing.T) {
	inv := NewInvestigation("inv-2", NewInvestigationProfile("acme", 10, 0))
	require.NoError(t, inv.Cancel())
	assert.Equal(t, InvestigationCancelled, inv.Status)
	assert.False(t, inv.CanRetry(5))
}

func TestChunkDefaults(t *testing.T) {
	c := Chunk{Content: "x"}
	assert.Equal(t, UnknownFilePath, c.Path())
	assert.Equal(t, DefaultMimeType, c.MimeType())
	assert.False(t, c.IsJSON())

	c.File.MimeType = "application/JSON"
	assert.True(t, c.IsJSON())
}

func TestNoMatchDiscardPreview(t *testing.T) {
	short := NewNoMatchDiscard("f.txt", "hello")
	assert.Equal(t, "hello...", short.ContentPreview)
	assert.Equal(t, DiscardReasonNoMatch, short.Reason)

	long := NewNoMatchDiscard("f.txt", strings.Repeat("é", 1500))
	assert.Equal(t, DiscardPreviewRunes+3, len([]rune(long.ContentPreview)))

	empty := NewEmptyDiscard("g.txt")
	assert.Equal(t, DiscardReasonEmpty, empty.Reason)
	assert.Empty(t, empty.ContentPreview)
}

func TestFindingHelpers(t *testing.T) {
	f := Finding{AssociatedPII: map[string]any{"username": "jdoe", "email": "j@x.io"}}
	assert.Equal(t, "email: j@x.io, username: jdoe", f.PIISummary())
	assert.Empty(t, Finding{}.PIISummary())

	nested := Finding{AssociatedPII: map[string]any{
		"phones":  []any{"555-1", "555-2"},
		"address": map[string]any{"city": "Lyon", "zip": "69001"},
		"age":     float64(42),
	}}
	assert.Equal(t, `address: {"city":"Lyon","zip":"69001"}, age: 42, phones: ["555-1","555-2"]`, nested.PIISummary())

	assert.Equal(t, AssessmentPrimary, NormalizeAssessment(" primary record "))
	assert.Equal(t, Assessment("Noise"), NormalizeAssessment("Noise"))
	assert.Equal(t, ConfidenceHigh, NormalizeConfidence("HIGH"))
	assert.Equal(t, Confidence(""), NormalizeConfidence("low"))
}

func TestRankFindingsIsStable(t *testing.T) {
	findings := []Finding{
		{SourceFile: "c1", Assessment: AssessmentContextual, Confidence: ConfidenceHigh},
		{SourceFile: "p-med", Assessment: AssessmentPrimary, Confidence: ConfidenceMedium},
		{SourceFile: "p-high-1", Assessment: AssessmentPrimary, Confidence: ConfidenceHigh},
		{SourceFile: "odd", Assessment: "Noise", Confidence: ConfidenceHigh},
		{SourceFile: "p-high-2", Assessment: AssessmentPrimary, Confidence: ConfidenceHigh},
	}
	RankFindings(findings)

	order := make([]string, 0, len(findings))
	for _, f := range findings {
		order = append(order, f.SourceFile)
	}
	assert.Equal(t, []string{"p-high-1", "p-high-2", "p-med", "c1", "odd"}, order)
}

func TestSentinels(t *testing.T) {
	assert.True(t, NoWebResults().IsPlaceholder())
	assert.False(t, WebResult{Title: NoResultsTitle, URL: "https://x"}.IsPlaceholder())
	assert.True(t, NoDocuments().IsPlaceholder())
}
