// Package router 组装 gin 引擎：全局中间件、健康检查、指标与 /v1 业务路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agent-smith-api/internal/config"
	"agent-smith-api/internal/interfaces/http/handler"
	"agent-smith-api/internal/interfaces/http/middleware"
)

const defaultMetricsPath = "/metrics"

// Handlers 为 nil 的处理器不注册对应路由
type Handlers struct {
	Health        *handler.HealthHandler
	Investigation *handler.InvestigationHandler
	Assistant     *handler.AssistantHandler
	Search        *handler.SearchHandler
}

type Router struct {
	engine *gin.Engine
}

// New limiter 为 nil 时 /v1 不限流
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	metricsPath := cfg.Observability.Metrics.Path
	if metricsPath == "" {
		metricsPath = defaultMetricsPath
	}

	engine.Use(globalMiddleware(cfg, metricsPath)...)

	if h := handlers.Health; h != nil {
		health := engine.Group("/health")
		health.GET("", h.Health)
		health.GET("/ready", h.Ready)
		health.GET("/live", h.Live)
	}
	if cfg.Observability.Metrics.Enabled {
		engine.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := engine.Group("/v1", middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
		KeyPrefix:         cfg.App.Name + ":ratelimit",
	}, limiter))
	RegisterV1Routes(v1, handlers)

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// globalMiddleware 顺序：recovery 最外层，访问日志最内层以拿到 trace 字段
func globalMiddleware(cfg *config.Config, metricsPath string) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
			AllowedMethods: cfg.Security.CORS.AllowedMethods,
			AllowedHeaders: cfg.Security.CORS.AllowedHeaders,
		}),
	}
	if cfg.Observability.Tracing.Enabled {
		chain = append(chain, middleware.Trace(cfg.App.Name), middleware.TraceContext())
	}
	if cfg.Observability.Metrics.Enabled {
		chain = append(chain, middleware.Metrics())
	}
	return append(chain, middleware.AccessLog("/health", metricsPath))
}
