package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filetally/pkg/internal/handle"
)

// RegisterOpsRoutes 注册运维路由：健康检查与定时任务管理.
func RegisterOpsRoutes(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)

	health := g.Group("/health")
	{
		health.GET("/db", handle.HealthDB)
		health.GET("/s3", handle.HealthS3)
		health.GET("/mq", handle.HealthMQ)
		health.GET("/kv", handle.HealthKV)
	}

	jobs := g.Group("/scheduler")
	{
		jobs.GET("/jobs", handle.SchedulerJobs)
		jobs.POST("/jobs/stop", handle.SchedulerStopJobs)
		jobs.POST("/jobs/:name/run", handle.SchedulerRunJob)
		jobs.DELETE("/jobs/:id", handle.SchedulerRemoveJob)
		jobs.GET("/queue/waiting", handle.SchedulerQueueWaiting)
	}
}
