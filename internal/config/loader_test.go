package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("AGENT_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${AGENT_TEST_HOST}"))
	assert.Equal(t, "port: 5433", expandEnv("port: ${AGENT_TEST_MISSING_PORT:5433}"))
	assert.Equal(t, "key: ", expandEnv("key: ${AGENT_TEST_MISSING_KEY:}"))
	assert.Equal(t, "raw: ${AGENT_TEST_UNDEFINED}", expandEnv("raw: ${AGENT_TEST_UNDEFINED}"))
}

func TestLoadFromDefaultsOnly(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Search.Web.MaxResults)
	assert.Equal(t, 2*time.Second, cfg.Search.Web.MinInterval)
	assert.Equal(t, 30, cfg.Investigation.DefaultSize)
	assert.Equal(t, 1, cfg.Investigation.ContextLines)
	assert.Equal(t, 3, cfg.Search.Retry.MaxAttempts)
	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Providers["gemini"].Model)
	assert.False(t, cfg.Search.Documents.Available())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTP.Addr())
}

func TestLoadFromMergesEnvFileAndVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("AGENT_TEST_DOCS_KEY", "docs-secret")
	t.Setenv("SEARCH_CHUNKS_API_KEY", "chunk-secret")

	writeConfig(t, dir, "config.yaml", `
search:
  documents:
    base_url: https://docs.example.test/v2
    api_key: ${AGENT_TEST_DOCS_KEY}
  chunks:
    url: https://chunks.example.test/search
investigation:
  context_lines: 2
`)
	writeConfig(t, dir, "config.staging.yaml", `
investigation:
  triage_concurrency: 8
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "docs-secret", cfg.Search.Documents.APIKey)
	assert.True(t, cfg.Search.Documents.Available())
	assert.Equal(t, "chunk-secret", cfg.Search.Chunks.APIKey)
	assert.True(t, cfg.Search.Chunks.Available())
	assert.Equal(t, 2, cfg.Investigation.ContextLines)
	assert.Equal(t, 8, cfg.Investigation.TriageConcurrency)
}

func TestLoadFromRejectsInvalidSizes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	writeConfig(t, dir, "config.yaml", `
investigation:
  default_size: 50
  max_size: 10
`)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_size")
}

func TestLoadFromRejectsUnknownDefaultProvider(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	writeConfig(t, dir, "config.yaml", `
llm:
  default_provider: nope
`)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
