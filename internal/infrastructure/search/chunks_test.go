package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/entity"
	apperrors "agent-smith-api/pkg/errors"
)

func TestChunkClientSearchChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["query"])
		assert.Equal(t, float64(30), body["size"])
		assert.Equal(t, map[string]any{}, body["include"])

		_, _ = w.Write([]byte(`{"items":[
			{"chunk_content":"{\"name\":\"alice\"}","file":{"file_path":"users.json","mime_type":"application/json"}},
			{"chunk_content":"alice was here","file":{}}
		]}`))
	}))
	defer srv.Close()

	c := NewChunkClient(config.ChunkSearchConfig{URL: srv.URL, APIKey: "secret"}, testRetry(), srv.Client())
	chunks, err := c.SearchChunks(context.Background(), entity.ChunkQuery{Query: "alice", Size: 30})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.True(t, chunks[0].IsJSON())
	assert.Equal(t, "users.json", chunks[0].Path())
	assert.Equal(t, entity.UnknownFilePath, chunks[1].Path())
	assert.Equal(t, entity.DefaultMimeType, chunks[1].MimeType())
}

func TestChunkClientFailureIsSearchFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChunkClient(config.ChunkSearchConfig{URL: srv.URL, APIKey: "secret"}, testRetry(), srv.Client())
	_, err := c.SearchChunks(context.Background(), entity.ChunkQuery{Query: "alice"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSearchFailed, apperrors.AsAppError(err).Code)
}

func TestChunkClientValidation(t *testing.T) {
	c := NewChunkClient(config.ChunkSearchConfig{URL: "http://chunks.local", APIKey: "secret"}, testRetry(), nil)
	_, err := c.SearchChunks(context.Background(), entity.ChunkQuery{Query: " "})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))

	c = NewChunkClient(config.ChunkSearchConfig{}, testRetry(), nil)
	_, err = c.SearchChunks(context.Background(), entity.ChunkQuery{Query: "alice"})
	assert.True(t, errors.Is(err, apperrors.ErrSearchUnavailable))
}
