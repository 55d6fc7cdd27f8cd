package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-smith-api/internal/domain/entity"
)

type memoryCache struct {
	data map[string][]byte
	err  error
}

func (m *memoryCache) Fetch(ctx context.Context, key string, _ time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	if b, ok := m.data[key]; ok {
		return b, nil
	}
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m.data[key] = b
	return b, nil
}

type countingSearcher struct {
	calls   int
	results []entity.WebResult
	err     error
}

func (s *countingSearcher) Search(context.Context, string, int) ([]entity.WebResult, error) {
	s.calls++
	return s.results, s.err
}

func TestCachedWebSearcherServesFromCache(t *testing.T) {
	next := &countingSearcher{results: []entity.WebResult{{Title: "Go", URL: "https://go.dev"}}}
	s := NewCachedWebSearcher(next, &memoryCache{data: map[string][]byte{}}, time.Minute)

	for i := 0; i < 2; i++ {
		results, err := s.Search(context.Background(), "go", 5)
		require.NoError(t, err)
		assert.Equal(t, next.results, results)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCachedWebSearcherFallsBackWhenCacheFails(t *testing.T) {
	next := &countingSearcher{results: []entity.WebResult{{Title: "Go", URL: "https://go.dev"}}}
	s := NewCachedWebSearcher(next, &memoryCache{err: errors.New("redis down")}, time.Minute)

	results, err := s.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, next.results, results)
	assert.Equal(t, 1, next.calls)
}

func TestCachedWebSearcherReturnsLoaderError(t *testing.T) {
	next := &countingSearcher{err: errors.New("upstream failed")}
	s := NewCachedWebSearcher(next, &memoryCache{data: map[string][]byte{}}, time.Minute)

	_, err := s.Search(context.Background(), "go", 5)
	assert.EqualError(t, err, "upstream failed")
	assert.Equal(t, 1, next.calls)
}

func TestNewCachedWebSearcherWithoutCache(t *testing.T) {
	next := &countingSearcher{}
	assert.Same(t, next, NewCachedWebSearcher(next, nil, time.Minute))
}

func TestWebCacheKey(t *testing.T) {
	assert.Equal(t, WebCacheKey("go", 5), WebCacheKey(" go ", 5))
	assert.NotEqual(t, WebCacheKey("go", 5), WebCacheKey("go", 8))
	assert.Regexp(t, `^web:[0-9a-f]{40}$`, WebCacheKey("go", 5))
}
