// Package logger slog 结构化日志，context 中的追踪与业务字段自动附加到每条日志
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// ContextKey context 中日志字段的键
type ContextKey string

const (
	TraceIDKey         ContextKey = "trace_id"
	SpanIDKey          ContextKey = "span_id"
	RequestIDKey       ContextKey = "request_id"
	SessionIDKey       ContextKey = "session_id"
	InvestigationIDKey ContextKey = "investigation_id"
	StageKey           ContextKey = "stage"
)

// 输出顺序
var contextKeys = [...]ContextKey{TraceIDKey, SpanIDKey, RequestIDKey, SessionIDKey, InvestigationIDKey, StageKey}

var current atomic.Pointer[slog.Logger]

// Init 输出到 stdout
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter format 为 json 时输出 JSON，否则输出 logfmt 风格文本
func InitWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: true}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	l := slog.New(h)
	current.Store(l)
	slog.SetDefault(l)
}

// parseLevel 无法识别时取 info
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lv
}

// Default 未初始化时按 info/json 初始化
func Default() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init("info", "json")
	return current.Load()
}

func FromContext(ctx context.Context) *slog.Logger {
	l := Default()
	if ctx == nil {
		return l
	}
	var attrs []any
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

func Debug(ctx context.Context, msg string, args ...any) { FromContext(ctx).Debug(msg, args...) }

func Info(ctx context.Context, msg string, args ...any) { FromContext(ctx).Info(msg, args...) }

func Warn(ctx context.Context, msg string, args ...any) { FromContext(ctx).Warn(msg, args...) }

// Error err 以 error 字段输出，可为 nil
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	FromContext(ctx).Error(msg, args...)
}

// Fatal 记录后以状态码 1 退出
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	Error(ctx, msg, err, args...)
	os.Exit(1)
}
