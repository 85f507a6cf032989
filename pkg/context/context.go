// Package context 把存储资源、调度器与追踪信息挂到 context 上，供处理器与服务读取.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/filetally/pkg/internal/storage"
	dbc "github.com/yeisme/filetally/pkg/internal/storage/db"
	kvc "github.com/yeisme/filetally/pkg/internal/storage/kv"
	mqc "github.com/yeisme/filetally/pkg/internal/storage/mq"
	s3c "github.com/yeisme/filetally/pkg/internal/storage/s3"
	"github.com/yeisme/filetally/pkg/scheduler"
)

type (
	managerKey   struct{}
	schedulerKey struct{}
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 从 context 中获取 Manager，没有时为 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

// GetS3Client 从 context 中获取 S3 客户端.
func GetS3Client(ctx context.Context) *s3c.Client { return GetManager(ctx).GetS3Client() }

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client { return GetManager(ctx).GetDBClient() }

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client { return GetManager(ctx).GetMQClient() }

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client { return GetManager(ctx).GetKVClient() }

// WithScheduler 将调度器存储到 context 中.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, sched)
}

// GetScheduler 从 context 中获取调度器，没有时为 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	sched, _ := ctx.Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}

// WithTraceContext 在 logger 上附加当前 span 的 trace_id 与 span_id. 远端传入但本地未采样的 span 同样附加.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}

	return logger.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}
