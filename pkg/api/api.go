// Package api 汇总 HTTP 路由组.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filetally/pkg/internal/router"
)

// Prefix 业务接口前缀.
const Prefix = "/api/v1"

// RegisterGroup 在 engine 上注册业务与运维路由.
func RegisterGroup(e *gin.Engine, handlers router.TrackerHandlers) *gin.Engine {
	v1 := e.Group(Prefix)

	router.RegisterTrackerRoutes(v1, handlers)
	router.RegisterOpsRoutes(v1)

	return e
}
