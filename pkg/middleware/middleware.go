// Package middleware 提供 gin 中间件：日志、指标、追踪、限流、跨域、panic 恢复以及依赖注入.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filetally/pkg/log"
)

// GenericFailureMessage 未预期错误返回给调用方的统一提示.
const GenericFailureMessage = "Something went wrong while processing the request."

// RecoveryMiddleware 捕获 handler 中的 panic，记录日志并返回统一的失败提示，进程继续运行.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger := log.Logger()
		logger.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": GenericFailureMessage})
	})
}
