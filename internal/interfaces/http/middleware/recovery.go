package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"agent-smith-api/internal/interfaces/http/dto"
	apperrors "agent-smith-api/pkg/errors"
	"agent-smith-api/pkg/logger"
)

// Recovery 捕获 handler panic，记录堆栈后返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", rec),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
			dto.Error(c, http.StatusInternalServerError, apperrors.CodeInternalError, "internal server error")
			c.Abort()
		}()
		c.Next()
	}
}
