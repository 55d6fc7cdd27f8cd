// Package errors 应用错误码与 HTTP 状态映射
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 对外暴露的业务错误码，按首位分段：1 通用、3 资源、4 业务、5 依赖
type ErrorCode string

const (
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	CodeInvestigationNotFound ErrorCode = "3001"
	CodeSessionNotFound       ErrorCode = "3002"
	CodeDocumentNotFound      ErrorCode = "3003"

	CodeSearchFailed      ErrorCode = "4001"
	CodeInvalidTransition ErrorCode = "4008"

	CodeDatabaseError     ErrorCode = "5001"
	CodeVectorDBError     ErrorCode = "5003"
	CodeQueueError        ErrorCode = "5004"
	CodeSearchUnavailable ErrorCode = "5006"
)

// 未列出的错误码按 500 处理
var httpStatus = map[ErrorCode]int{
	CodeSuccess:               http.StatusOK,
	CodeInvalidParam:          http.StatusBadRequest,
	CodeTooManyRequests:       http.StatusTooManyRequests,
	CodeServiceUnavailable:    http.StatusServiceUnavailable,
	CodeInvestigationNotFound: http.StatusNotFound,
	CodeSessionNotFound:       http.StatusNotFound,
	CodeDocumentNotFound:      http.StatusNotFound,
	CodeSearchFailed:          http.StatusBadGateway,
	CodeInvalidTransition:     http.StatusConflict,
	CodeSearchUnavailable:     http.StatusServiceUnavailable,
}

func codeToHTTPStatus(code ErrorCode) int {
	if s, ok := httpStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError 携带错误码的错误
//
// errors.Is 按错误码比较，哨兵错误派生出的副本（WithDetail/Wrap）仍可与哨兵匹配。
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithDetail 返回副本，哨兵本身不变
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: codeToHTTPStatus(code)}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Err = err
	return e
}

var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrInvestigationNotFound = New(CodeInvestigationNotFound, "investigation not found")
	ErrSessionNotFound       = New(CodeSessionNotFound, "session not found")
	ErrDocumentNotFound      = New(CodeDocumentNotFound, "document not found")

	ErrSearchFailed      = New(CodeSearchFailed, "search failed")
	ErrSearchUnavailable = New(CodeSearchUnavailable, "search provider not configured")
	ErrInvalidTransition = New(CodeInvalidTransition, "invalid status transition")
)

// IsAppError 错误链中是否有 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 取错误链中的 AppError，没有时包装为 CodeUnknown
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
