// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ftcontext "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/log"
	"github.com/yeisme/filetally/pkg/middleware"
	"github.com/yeisme/filetally/pkg/rule"
)

// UnimplementedHandlers 在未注入业务处理器时返回 501，服务仍能启动.
type UnimplementedHandlers struct{}

func notImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

func (UnimplementedHandlers) Greeting() gin.HandlerFunc             { return notImplemented }
func (UnimplementedHandlers) Observe() gin.HandlerFunc              { return notImplemented }
func (UnimplementedHandlers) ListFiles() gin.HandlerFunc            { return notImplemented }
func (UnimplementedHandlers) GetFile() gin.HandlerFunc              { return notImplemented }
func (UnimplementedHandlers) DeleteByID() gin.HandlerFunc           { return notImplemented }
func (UnimplementedHandlers) DeleteByName() gin.HandlerFunc         { return notImplemented }
func (UnimplementedHandlers) Stats() gin.HandlerFunc                { return notImplemented }
func (UnimplementedHandlers) Reconcile() gin.HandlerFunc            { return notImplemented }
func (UnimplementedHandlers) LastReconcile() gin.HandlerFunc        { return notImplemented }
func (UnimplementedHandlers) PendingRemovals() gin.HandlerFunc      { return notImplemented }
func (UnimplementedHandlers) ClearPendingRemovals() gin.HandlerFunc { return notImplemented }
func (UnimplementedHandlers) AuditLog() gin.HandlerFunc             { return notImplemented }

// bindQuery 绑定查询参数并按 rule 标签校验.
func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	if err := rule.ValidateStruct(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	return true
}

// internalError 记录错误并返回统一的失败提示.
func internalError(c *gin.Context, op string, err error) {
	l := ftcontext.WithTraceContext(c.Request.Context(), log.Component("http"))
	l.Error().Err(err).Str("op", op).Str("path", c.FullPath()).Msg("request failed")

	status := http.StatusInternalServerError
	if !errors.Is(err, service.ErrInternal) {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": middleware.GenericFailureMessage})
}
