package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

const (
	envConfigDir = "APP_CONFIG_DIR"
	envAppEnv    = "APP_ENV"
)

// ${VAR} 或 ${VAR:default}
var envPlaceholder = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load 目录取 $APP_CONFIG_DIR，默认 ./configs
func Load() (*Config, error) {
	dir := os.Getenv(envConfigDir)
	if dir == "" {
		dir = "configs"
	}
	return LoadFrom(dir)
}

// LoadFrom 优先级由低到高：内置默认值、config.yaml、config.<APP_ENV>.yaml、环境变量
//
// 文件都不存在时只用默认值。环境变量名为键路径大写并以下划线连接，例如 SEARCH_CHUNKS_API_KEY。
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	env := os.Getenv(envAppEnv)
	if env == "" {
		env = "development"
	}
	for _, name := range []string{"config.yaml", "config." + env + ".yaml"} {
		if err := mergeFile(v, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// mergeFile 缺失的文件忽略，内容先做 ${VAR} 替换
func mergeFile(v *viper.Viper, path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := v.MergeConfig(strings.NewReader(expandEnv(string(raw)))); err != nil {
		return fmt.Errorf("merge %s: %w", path, err)
	}
	return nil
}

// expandEnv 未定义且没有默认值的占位符原样保留
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(placeholder string) string {
		m := envPlaceholder.FindStringSubmatch(placeholder)
		if val, ok := os.LookupEnv(m[1]); ok {
			return val
		}
		if strings.Contains(placeholder, ":") {
			return m[2]
		}
		return placeholder
	})
}

// Validate 校验跨字段约束，返回全部问题
func (c *Config) Validate() error {
	var errs []error
	inv := c.Investigation
	if inv.DefaultSize <= 0 {
		errs = append(errs, errors.New("investigation.default_size must be positive"))
	}
	if inv.MaxSize < inv.DefaultSize {
		errs = append(errs, fmt.Errorf("investigation.max_size (%d) must be >= default_size (%d)", inv.MaxSize, inv.DefaultSize))
	}
	if inv.ContextLines < 0 {
		errs = append(errs, errors.New("investigation.context_lines must not be negative"))
	}
	if c.Search.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("search.retry.max_attempts must be at least 1"))
	}
	if p := c.LLM.DefaultProvider; p != "" {
		if _, ok := c.LLM.Providers[p]; !ok {
			errs = append(errs, fmt.Errorf("llm.default_provider %q is not configured", p))
		}
	}
	return errors.Join(errs...)
}

var defaults = map[string]any{
	"app.name":    "agent-smith-api",
	"app.version": "v0.1.0",
	"app.env":     "development",

	"server.http.host":          "0.0.0.0",
	"server.http.port":          8080,
	"server.http.read_timeout":  "30s",
	"server.http.write_timeout": "180s",
	"server.http.idle_timeout":  "120s",

	"database.postgres.enabled":            true,
	"database.postgres.host":               "localhost",
	"database.postgres.port":               5432,
	"database.postgres.user":               "postgres",
	"database.postgres.password":           "",
	"database.postgres.database":           "agent_smith",
	"database.postgres.ssl_mode":           "disable",
	"database.postgres.max_open_conns":     20,
	"database.postgres.max_idle_conns":     5,
	"database.postgres.conn_max_lifetime":  "30m",
	"database.postgres.conn_max_idle_time": "5m",

	"cache.redis.enabled":        true,
	"cache.redis.host":           "localhost",
	"cache.redis.port":           6379,
	"cache.redis.password":       "",
	"cache.redis.db":             0,
	"cache.redis.pool_size":      50,
	"cache.redis.min_idle_conns": 5,
	"cache.redis.dial_timeout":   "5s",
	"cache.redis.read_timeout":   "3s",
	"cache.redis.write_timeout":  "3s",

	"vector.milvus.enabled":              false,
	"vector.milvus.host":                 "localhost",
	"vector.milvus.port":                 19530,
	"vector.milvus.collection_prefix":    "agent_smith",
	"vector.milvus.index_type":           "HNSW",
	"vector.milvus.metric_type":          "COSINE",
	"vector.milvus.hnsw_m":               16,
	"vector.milvus.hnsw_ef_construction": 200,

	"llm.default_provider":             "gemini",
	"llm.providers.gemini.kind":        "gemini",
	"llm.providers.gemini.api_key":     "",
	"llm.providers.gemini.model":       "gemini-1.5-flash",
	"llm.providers.gemini.temperature": 0.2,
	"llm.providers.gemini.timeout":     "60s",

	"embedding.provider":   "openai",
	"embedding.model":      "text-embedding-3-small",
	"embedding.api_key":    "",
	"embedding.endpoint":   "",
	"embedding.dimension":  1536,
	"embedding.batch_size": 16,
	"embedding.timeout":    "30s",

	"search.web.endpoint":       "https://html.duckduckgo.com/html/",
	"search.web.user_agent":     "Mozilla/5.0 (compatible; AgentSmith/1.0)",
	"search.web.max_results":    8,
	"search.web.min_interval":   "2s",
	"search.web.timeout":        "15s",
	"search.documents.base_url": "",
	"search.documents.api_key":  "",
	"search.documents.limit":    5,
	"search.documents.timeout":  "10s",
	"search.chunks.url":         "",
	"search.chunks.api_key":     "",
	"search.chunks.timeout":     "30s",
	"search.retry.max_attempts": 3,
	"search.retry.base_delay":   "1s",
	"search.cache_ttl":          "15m",

	"investigation.default_size":       30,
	"investigation.max_size":           200,
	"investigation.context_lines":      1,
	"investigation.triage_concurrency": 4,
	"investigation.max_query_runes":    512,
	"investigation.timeout":            "10m",
	"investigation.max_retries":        2,
	"investigation.index_findings":     true,

	"assistant.history_window": 20,
	"assistant.max_documents":  3,

	"messaging.redis_stream.max_len":                  10000,
	"messaging.redis_stream.consumer_group_prefix":    "cg",
	"messaging.redis_stream.block_timeout":            "5s",
	"messaging.redis_stream.claim_interval":           "1m",
	"messaging.redis_stream.retry_limit":              3,
	"messaging.redis_stream.concurrency":              2,
	"messaging.redis_stream.retry_backoff.initial":    "2s",
	"messaging.redis_stream.retry_backoff.max":        "1m",
	"messaging.redis_stream.retry_backoff.multiplier": 2.0,

	"observability.logging.level":       "info",
	"observability.logging.format":      "json",
	"observability.tracing.enabled":     false,
	"observability.tracing.endpoint":    "localhost:4317",
	"observability.tracing.sample_rate": 1.0,
	"observability.metrics.enabled":     true,
	"observability.metrics.path":        "/metrics",

	"security.rate_limit.enabled":             true,
	"security.rate_limit.requests_per_second": 20,
	"security.rate_limit.burst":               40,
	"security.cors.allowed_origins":           []string{"*"},
	"security.cors.allowed_methods":           []string{"GET", "POST", "OPTIONS"},
	"security.cors.allowed_headers":           []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
}
