package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filetally/pkg/context"
)

const timeout = 2 * time.Second

// healthProbeKey KV 健康检查使用的键，不要求存在.
const healthProbeKey = "health:probe"

type healthCheck struct {
	component string
	check     func(ctx context.Context) error
}

// healthChecks 按固定顺序列出各后端的检查.
var healthChecks = []healthCheck{
	{"db", checkDB},
	{"s3", checkS3},
	{"mq", checkMQ},
	{"kv", checkKV},
}

func checkDB(ctx context.Context) error {
	dbc := ctxPkg.GetDBClient(ctx)
	if dbc == nil || dbc.DB == nil {
		return errors.New("db client not initialized")
	}

	return dbc.HealthCheck(ctx)
}

// checkS3 对象存储是存在性探测的依据.
func checkS3(ctx context.Context) error {
	s3c := ctxPkg.GetS3Client(ctx)
	if s3c == nil || s3c.Client == nil {
		return errors.New("s3 client not initialized")
	}

	return s3c.HealthCheck(ctx)
}

func checkMQ(ctx context.Context) error {
	if ctxPkg.GetMQClient(ctx) == nil {
		return errors.New("mq client not initialized")
	}

	return nil
}

func checkKV(ctx context.Context) error {
	kvc := ctxPkg.GetKVClient(ctx)
	if kvc == nil || kvc.KVStore == nil {
		return errors.New("kv client not initialized")
	}

	_, err := kvc.Exists(ctx, healthProbeKey)

	return err
}

func healthHandler(hc healthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := hc.check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"component": hc.component, "status": "unhealthy", "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"component": hc.component, "status": "ok"})
	}
}

var (
	// HealthDB 审计数据库健康检查.
	HealthDB = healthHandler(healthChecks[0])
	// HealthS3 对象存储健康检查.
	HealthS3 = healthHandler(healthChecks[1])
	// HealthMQ 消息队列健康检查.
	HealthMQ = healthHandler(healthChecks[2])
	// HealthKV 键值存储健康检查.
	HealthKV = healthHandler(healthChecks[3])
)

// Health 汇总所有后端状态. 未启用的后端记为 unhealthy，但只要探测所需的对象存储可用即返回 200.
func Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	components := make(gin.H, len(healthChecks))
	status := http.StatusOK

	for _, hc := range healthChecks {
		if err := hc.check(ctx); err != nil {
			components[hc.component] = err.Error()

			if hc.component == "s3" {
				status = http.StatusServiceUnavailable
			}

			continue
		}

		components[hc.component] = "ok"
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "components": components})
}
