package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/domain/entity"
	apperrors "agent-smith-api/pkg/errors"
)

const resultsPage = `<html><body>
<div class="results">
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2Fgo1.24&amp;rut=abc">Go 1.24 <b>Release</b> Notes</a>
    </h2>
    <a class="result__snippet" href="#">The latest Go release, version 1.24.</a>
  </div>
  <div class="result">
    <a class="result__a" href="https://example.com/direct">Direct link</a>
    <div class="result__snippet">Second snippet</div>
  </div>
  <div class="result"><span>ad block without a link</span></div>
  <div class="result">
    <a class="result__a" href="https://example.com/third">Third</a>
  </div>
</div>
</body></html>`

func TestParseDuckDuckGoHTML(t *testing.T) {
	results, err := ParseDuckDuckGoHTML(strings.NewReader(resultsPage), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, entity.WebResult{
		Title:   "Go 1.24 Release Notes",
		Snippet: "The latest Go release, version 1.24.",
		URL:     "https://go.dev/doc/go1.24",
	}, results[0])
	assert.Equal(t, "https://example.com/direct", results[1].URL)
	assert.Equal(t, "Second snippet", results[1].Snippet)
	assert.Equal(t, "", results[2].Snippet)

	limited, err := ParseDuckDuckGoHTML(strings.NewReader(resultsPage), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://a.io/x?y=1", resolveRedirect("https://duckduckgo.com/l/?uddg=https%3A%2F%2Fa.io%2Fx%3Fy%3D1"))
	assert.Equal(t, "https://b.io", resolveRedirect("https://b.io"))
	assert.Equal(t, "", resolveRedirect(""))
}

func testRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestWebClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang release", r.URL.Query().Get("q"))
		assert.Equal(t, "agent-smith-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	c := NewWebClient(config.WebSearchConfig{Endpoint: srv.URL, UserAgent: "agent-smith-test", MaxResults: 2}, testRetry(), srv.Client())
	results, err := c.Search(context.Background(), "  golang release ", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestWebClientSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="no-results">No results.</div></body></html>`))
	}))
	defer srv.Close()

	c := NewWebClient(config.WebSearchConfig{Endpoint: srv.URL}, testRetry(), srv.Client())
	results, err := c.Search(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsPlaceholder())
	assert.Equal(t, "No web results found.", results[0].Snippet)
}

func TestWebClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	c := NewWebClient(config.WebSearchConfig{Endpoint: srv.URL}, testRetry(), srv.Client())
	results, err := c.Search(context.Background(), "go", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewWebClient(config.WebSearchConfig{Endpoint: srv.URL}, testRetry(), srv.Client())
	_, err := c.Search(context.Background(), "go", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSearchFailed))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebClientRejectsEmptyQuery(t *testing.T) {
	c := NewWebClient(config.WebSearchConfig{Endpoint: "http://127.0.0.1:1"}, testRetry(), nil)
	_, err := c.Search(context.Background(), "   ", 0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))
}

func TestStatusErrorRetryable(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 500}).Retryable())
	assert.True(t, (&StatusError{StatusCode: 429}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 404}).Retryable())
}
