// Package handler HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// HealthChecker 可探活的外部依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency 就绪检查项
// Required 为 false 时失败只标记 degraded；Checker 为 nil 表示未配置
type Dependency struct {
	Name     string
	Required bool
	Checker  HealthChecker
}

type HealthHandler struct {
	version string
	deps    []Dependency
}

func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{version: version, deps: deps}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type dependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type readinessResponse struct {
	Status string                       `json:"status"`
	Checks map[string]*dependencyStatus `json:"checks"`
}

// Health 进程信息
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 并发探测所有依赖，任一必需依赖不可用时返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		ready  = true
		checks = make(map[string]*dependencyStatus, len(h.deps))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range h.deps {
		g.Go(func() error {
			st := probe(gctx, dep)
			mu.Lock()
			defer mu.Unlock()
			checks[dep.Name] = st
			if dep.Required && st.Status != "ok" {
				ready = false
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, dep Dependency) *dependencyStatus {
	if dep.Checker == nil {
		if dep.Required {
			return &dependencyStatus{Status: "missing", Error: dep.Name + " is not configured"}
		}
		return &dependencyStatus{Status: "disabled"}
	}
	start := time.Now()
	err := dep.Checker.HealthCheck(ctx)
	st := &dependencyStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		st.Error = err.Error()
		st.Status = "error"
		if !dep.Required {
			st.Status = "degraded"
		}
	}
	return st
}

// Live 存活检查
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
