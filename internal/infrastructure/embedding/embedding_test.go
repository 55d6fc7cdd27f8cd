package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/config"
)

func TestTEIEmbedStringsBatches(t *testing.T) {
	var batches [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var req teiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, req.Texts)

		resp := teiResponse{}
		for i := range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(len(req.Texts[i])), 0.5})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewTEIEmbedder(&config.EmbeddingConfig{Endpoint: srv.URL, BatchSize: 2})
	require.NoError(t, err)
	vecs, err := c.EmbedStrings(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc"}}, batches)
	assert.Equal(t, [][]float64{{1, 0.5}, {2, 0.5}, {3, 0.5}}, vecs)
}

func TestTEIEmbedStringsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	c, err := NewTEIEmbedder(&config.EmbeddingConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	_, err = c.EmbedStrings(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "status 500: model not loaded")
}

func TestNewEmbedderValidation(t *testing.T) {
	_, err := NewEmbedder(context.Background(), &config.EmbeddingConfig{Provider: "bogus"})
	assert.ErrorContains(t, err, "unsupported embedding provider")

	_, err = NewEmbedder(context.Background(), &config.EmbeddingConfig{Provider: ProviderTEI})
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = NewEmbedder(context.Background(), &config.EmbeddingConfig{Provider: ProviderGemini})
	assert.ErrorContains(t, err, "api key is required")

	e, err := NewEmbedder(context.Background(), &config.EmbeddingConfig{Provider: ProviderTEI, Endpoint: "http://tei.local"})
	require.NoError(t, err)
	assert.IsType(t, &TEIEmbedder{}, e)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, [][]float32{{1, 0.5}, {}}, ToFloat32([][]float64{{1, 0.5}, {}}))
}

func TestEmbedInBatchesCountMismatch(t *testing.T) {
	_, err := embedInBatches([]string{"a", "b"}, 5, func(batch []string) ([][]float64, error) {
		return [][]float64{{1}}, nil
	})
	assert.ErrorContains(t, err, "want 2, got 1")

	out, err := embedInBatches(nil, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
