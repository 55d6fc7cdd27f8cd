package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
)

// Response 统一响应结构，code 为业务码，成功时为 "0"
type Response[T any] struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func traceID(c *gin.Context) string {
	if id := c.GetString("trace_id"); id != "" {
		return id
	}
	return c.GetString("request_id")
}

func respond[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    string(apperrors.CodeSuccess),
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: traceID(c),
	})
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	respond(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 返回带分页的成功响应
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	respond(c, http.StatusOK, "success", data, meta)
}

// Created 返回创建成功响应 (201)
func Created[T any](c *gin.Context, data T) {
	respond(c, http.StatusCreated, "created", data, nil)
}

// Accepted 返回接受处理响应 (202)
func Accepted[T any](c *gin.Context, data T) {
	respond(c, http.StatusAccepted, "accepted", data, nil)
}

// Error 返回错误响应
func Error(c *gin.Context, status int, code apperrors.ErrorCode, message string) {
	c.JSON(status, ErrorResponse{
		Code:    string(code),
		Message: message,
		TraceID: traceID(c),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, apperrors.CodeInvalidParam, message)
}

// FromError 将错误映射为响应：AppError 使用其状态码，其余按 500 处理并记录日志
func FromError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath())
		}
		c.JSON(status, ErrorResponse{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Detail:  appErr.Detail,
			TraceID: traceID(c),
		})
		return
	}

	logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath())
	Error(c, http.StatusInternalServerError, apperrors.CodeInternalError, "internal server error")
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize int, total int64, totalPages int) *PageMeta {
	return &PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
