package middleware

import (
	"github.com/gin-gonic/gin"

	ftcontext "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/storage"
	"github.com/yeisme/filetally/pkg/scheduler"
)

// StorageMiddleware 将存储管理器注入请求上下文，供健康检查等处理器读取.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ftcontext.WithStorageManager(c.Request.Context(), manager))
		c.Next()
	}
}

// SchedulerMiddleware 将调度器注入请求上下文.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ftcontext.WithScheduler(c.Request.Context(), sched))
		c.Next()
	}
}

// GetScheduler 从请求上下文中获取调度器.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	return ftcontext.GetScheduler(c.Request.Context())
}
