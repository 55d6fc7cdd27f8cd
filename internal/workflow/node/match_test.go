package node

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"agent-smith-api/internal/domain/entity"
)

func rawOf(results []gjson.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Raw)
	}
	return out
}

func TestFindRelevantObjects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		query string
		want  []string
	}{
		{
			name:  "innermost object wins",
			doc:   `{"meta":"alice","user":{"name":"Alice","email":"a@x.io"}}`,
			query: "alice",
			want:  []string{`{"name":"Alice","email":"a@x.io"}`},
		},
		{
			name:  "object itself when no child matches",
			doc:   `{"name":"Bob","age":3}`,
			query: "BOB",
			want:  []string{`{"name":"Bob","age":3}`},
		},
		{
			name:  "array concatenates in document order",
			doc:   `[{"u":"jdoe"},{"u":"other"},{"u":"JDoe2"}]`,
			query: "jdoe",
			want:  []string{`{"u":"jdoe"}`, `{"u":"JDoe2"}`},
		},
		{
			name:  "numbers match on their text",
			doc:   `{"phone":5551234}`,
			query: "555",
			want:  []string{`{"phone":5551234}`},
		},
		{
			name:  "escaped slashes are decoded before matching",
			doc:   `{"user":{"id":7,"links":["http:\/\/evil.example\/bob"]}}`,
			query: "evil.example/bob",
			want:  []string{`{"id":7,"links":["http:\/\/evil.example\/bob"]}`},
		},
		{
			name:  "unicode escapes are decoded before matching",
			doc:   `{"user":{"id":7,"aliases":["Jos\u00e9 Ruiz"]}}`,
			query: "josé",
			want:  []string{`{"id":7,"aliases":["Jos\u00e9 Ruiz"]}`},
		},
		{
			name:  "escaped quotes are decoded before matching",
			doc:   `[{"id":1,"contact":{"mail":"x"},"note":"see \"Carol\""}]`,
			query: `"carol"`,
			want:  []string{`{"id":1,"contact":{"mail":"x"},"note":"see \"Carol\""}`},
		},
		{
			name:  "scalar yields nothing",
			doc:   `"alice"`,
			query: "alice",
			want:  []string{},
		},
		{
			name:  "no match",
			doc:   `{"a":{"b":"c"}}`,
			query: "zzz",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindRelevantObjects(gjson.Parse(tt.doc), tt.query)
			assert.Equal(t, tt.want, rawOf(got))
		})
	}
}

func TestIsolateRelevantLines(t *testing.T) {
	content := "one\ntwo alice\nthree\nfour ALICE\nfive"

	assert.Equal(t, []string{"two alice", "four ALICE"}, IsolateRelevantLines(content, "Alice", 0))
	assert.Equal(t,
		[]string{"one\ntwo alice\nthree", "three\nfour ALICE\nfive"},
		IsolateRelevantLines(content, "alice", 1),
	)
	assert.Equal(t,
		[]string{"one\ntwo alice\nthree\nfour ALICE\nfive", "one\ntwo alice\nthree\nfour ALICE\nfive"},
		IsolateRelevantLines(content, "alice", 10),
	)
	assert.Empty(t, IsolateRelevantLines(content, "bob", 1))
	assert.Equal(t, []string{"x alice"}, IsolateRelevantLines("x alice\r\n", "alice", 0))
}

func TestParseChunks(t *testing.T) {
	long := strings.Repeat("é", 1200)
	chunks := []entity.Chunk{
		{Content: "", File: entity.ChunkFile{FilePath: "empty.txt"}},
		{Content: `{"users":[{"name":"alice"},{"name":"bob"}]}`, File: entity.ChunkFile{FilePath: "users.json", MimeType: "application/json"}},
		{Content: "{not json alice", File: entity.ChunkFile{FilePath: "broken.json", MimeType: "application/json"}},
		{Content: "line alice\nline two", File: entity.ChunkFile{FilePath: "log.txt"}},
		{Content: long},
	}

	records, discards := ParseChunks(chunks, "alice", 1)

	require.Len(t, records, 3)
	assert.Equal(t, entity.Record{SourceFile: "users.json", FileType: "application/json", Kind: entity.RecordKindJSON, Content: `{"name":"alice"}`}, records[0])
	assert.Equal(t, entity.RecordKindText, records[1].Kind)
	assert.Equal(t, "{not json alice", records[1].Content)
	assert.Equal(t, entity.Record{SourceFile: "log.txt", FileType: "text/plain", Kind: entity.RecordKindText, Content: "line alice\nline two"}, records[2])

	require.Len(t, discards, 2)
	assert.Equal(t, entity.DiscardEntry{Reason: "Chunk content was empty.", FilePath: "empty.txt"}, discards[0])
	assert.Equal(t, "Query not found in content.", discards[1].Reason)
	assert.Equal(t, "N/A", discards[1].FilePath)
	assert.Equal(t, strings.Repeat("é", 1000)+"...", discards[1].ContentPreview)
}

func TestParseChunksJSONScalarIsDiscarded(t *testing.T) {
	records, discards := ParseChunks([]entity.Chunk{
		{Content: `"alice"`, File: entity.ChunkFile{FilePath: "s.json", MimeType: "application/json"}},
	}, "alice", 0)

	assert.Empty(t, records)
	require.Len(t, discards, 1)
	assert.Equal(t, `"alice"...`, discards[0].ContentPreview)
}

func TestRenderRecord(t *testing.T) {
	rendered := RenderRecord(entity.Record{Kind: entity.RecordKindJSON, Content: `{"name":"alice","tags":["a"]}`})
	assert.Equal(t, "{\n  \"name\": \"alice\",\n  \"tags\": [\"a\"]\n}", rendered)

	assert.Equal(t, "plain", RenderRecord(entity.Record{Kind: entity.RecordKindText, Content: "plain"}))
}

func TestRenderRecordDecodesEscapes(t *testing.T) {
	rendered := RenderRecord(entity.Record{Kind: entity.RecordKindJSON, Content: `{"name":"Jos\u00e9","url":"http:\/\/a.io\/b","q":"say \"hi\" <x>"}`})
	assert.Equal(t, "{\n  \"name\": \"José\",\n  \"url\": \"http://a.io/b\",\n  \"q\": \"say \\\"hi\\\" <x>\"\n}", rendered)
}

func TestParseChunksMatchesEscapedJSON(t *testing.T) {
	records, discards := ParseChunks([]entity.Chunk{
		{Content: `{"user":{"id":7,"links":["http:\/\/evil.example\/bob"]}}`, File: entity.ChunkFile{FilePath: "a.json", MimeType: "application/json"}},
		{Content: `{"user":{"id":7,"aliases":["Jos\u00e9 Ruiz"]}}`, File: entity.ChunkFile{FilePath: "b.json", MimeType: "application/json"}},
	}, "evil.example/bob", 0)
	require.Len(t, records, 1)
	assert.Equal(t, "a.json", records[0].SourceFile)
	assert.Len(t, discards, 1)

	records, _ = ParseChunks([]entity.Chunk{
		{Content: `{"user":{"id":7,"aliases":["Jos\u00e9 Ruiz"]}}`, File: entity.ChunkFile{FilePath: "b.json", MimeType: "application/json"}},
	}, "JOSÉ", 0)
	require.Len(t, records, 1)
	assert.Contains(t, RenderRecord(records[0]), "José Ruiz")
}
