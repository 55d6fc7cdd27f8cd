// Package metrics 集中定义进程内的 Prometheus 指标，全部注册到默认 registry
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agent_smith"

var sizeBuckets = prometheus.ExponentialBuckets(100, 10, 6)

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func gauge(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

// HTTP
var (
	HTTPRequestsTotal   = counter("http", "requests_total", "Total number of HTTP requests", "method", "path", "status")
	HTTPRequestDuration = histogram("http", "request_duration_seconds", "HTTP request duration in seconds",
		[]float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}, "method", "path")
	HTTPRequestSize  = histogram("http", "request_size_bytes", "HTTP request size in bytes", sizeBuckets, "method", "path")
	HTTPResponseSize = histogram("http", "response_size_bytes", "HTTP response size in bytes", sizeBuckets, "method", "path")
	HTTPInFlight     = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
		Help: "Number of HTTP requests currently being served",
	})
)

// 外部检索，provider 取 web/documents/chunks
var (
	SearchCallTotal    = counter("search", "call_total", "Total number of outbound search calls", "provider", "status")
	SearchCallDuration = histogram("search", "call_duration_seconds", "Outbound search call duration in seconds",
		[]float64{.05, .1, .25, .5, 1, 2.5, 5, 10}, "provider")
	SearchResults = histogram("search", "results", "Number of results returned per search call",
		[]float64{0, 1, 5, 10, 20, 50, 100}, "provider")
	SearchRetries = counter("search", "retries_total", "Total number of retried search attempts", "provider")

	// result: hit/miss/error
	CacheLookups = counter("cache", "lookups_total", "Cache lookups by result", "cache", "result")
)

// 调查流水线与编排器
var (
	InvestigationTotal         = counter("investigation", "total", "Total number of investigations by final status", "status")
	InvestigationStageDuration = histogram("investigation", "stage_duration_seconds", "Investigation pipeline stage duration in seconds",
		[]float64{.01, .1, .5, 1, 5, 10, 30, 60, 120}, "stage")
	// assessment: primary/contextual/unknown/failed
	TriageOutcomes     = counter("investigation", "triage_outcomes_total", "Triaged records by assessment", "assessment")
	DiscardedChunks    = counter("investigation", "discarded_chunks_total", "Chunks discarded by the parser", "reason")
	OrchestratorRoutes = counter("orchestrator", "routes_total", "Tool choices made by the planner", "tool")
)

// LLM，type 取 prompt/completion
var (
	LLMTokensUsed   = counter("llm", "tokens_used_total", "Total tokens used for LLM calls", "workflow", "provider", "model", "type")
	LLMCallDuration = histogram("llm", "call_duration_seconds", "LLM call duration in seconds",
		[]float64{.5, 1, 5, 10, 30, 60, 120}, "workflow", "provider", "model")
	LLMCallTotal = counter("llm", "call_total", "Total number of LLM calls", "workflow", "provider", "model", "status")
)

// 向量库与队列
var (
	MilvusSearchDuration = histogram("milvus", "search_duration_seconds", "Milvus search duration in seconds",
		[]float64{.01, .05, .1, .25, .5, 1}, "collection")
	MilvusSearchTotal = counter("milvus", "search_total", "Total number of Milvus searches", "collection", "status")

	RedisStreamLag       = gauge("redis", "stream_lag", "Redis stream consumer lag", "stream", "consumer_group")
	RedisStreamProcessed = counter("redis", "stream_processed_total", "Total number of Redis stream messages processed", "stream", "status")
)
