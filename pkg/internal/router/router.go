// Package router 管理 HTTP 路由.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filetally/pkg/internal/handle"
)

// TrackerHandlers 定义由应用层注入的文件追踪处理器. router 包只负责把路径绑定到处理器，
// 实现由 pkg/internal/handle 提供.
type TrackerHandlers interface {
	Greeting() gin.HandlerFunc
	Observe() gin.HandlerFunc
	ListFiles() gin.HandlerFunc
	GetFile() gin.HandlerFunc
	DeleteByID() gin.HandlerFunc
	DeleteByName() gin.HandlerFunc
	Stats() gin.HandlerFunc
	Reconcile() gin.HandlerFunc
	LastReconcile() gin.HandlerFunc
	PendingRemovals() gin.HandlerFunc
	ClearPendingRemovals() gin.HandlerFunc
	AuditLog() gin.HandlerFunc
}

// RegisterTrackerRoutes 将文件追踪路由绑定到 group（通常为 /api/v1），并返回实际使用的 handlers.
// handlers 为 nil 时使用返回 501 的占位实现.
//
//	GET    /                   -> Greeting
//	POST   /events/files       -> Observe
//	GET    /files              -> ListFiles
//	GET    /files/:id          -> GetFile
//	DELETE /files/:id          -> DeleteByID
//	DELETE /files?name=        -> DeleteByName
//	GET    /stats              -> Stats
//	POST   /reconcile          -> Reconcile
//	GET    /reconcile/last     -> LastReconcile
//	GET    /reconcile/pending  -> PendingRemovals
//	DELETE /reconcile/pending  -> ClearPendingRemovals
//	GET    /audit              -> AuditLog
func RegisterTrackerRoutes(group *gin.RouterGroup, handlers TrackerHandlers) TrackerHandlers {
	if handlers == nil {
		handlers = handle.UnimplementedHandlers{}
	}

	group.GET("/", handlers.Greeting())
	group.POST("/events/files", handlers.Observe())

	files := group.Group("/files")
	{
		files.GET("", handlers.ListFiles())
		files.DELETE("", handlers.DeleteByName())
		files.GET("/:id", handlers.GetFile())
		files.DELETE("/:id", handlers.DeleteByID())
	}

	group.GET("/stats", handlers.Stats())

	reconcile := group.Group("/reconcile")
	{
		reconcile.POST("", handlers.Reconcile())
		reconcile.GET("/last", handlers.LastReconcile())
		reconcile.GET("/pending", handlers.PendingRemovals())
		reconcile.DELETE("/pending", handlers.ClearPendingRemovals())
	}

	group.GET("/audit", handlers.AuditLog())

	return handlers
}
