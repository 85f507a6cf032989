package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/filetally/pkg/configs"
	ctxPkg "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/audit"
	"github.com/yeisme/filetally/pkg/internal/model"
	"github.com/yeisme/filetally/pkg/internal/probe"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	nlog "github.com/yeisme/filetally/pkg/log"
)

// ErrAuditDisabled 未开启审计落库.
var ErrAuditDisabled = errors.New("audit persistence disabled")

// WithAuditLog 设置可查询的审计表.
func WithAuditLog(db *audit.DBSink) Option { return func(t *TrackerService) { t.auditLog = db } }

// NewFromContext 按配置与上下文中的存储资源组装服务：
// MQ 可用时发布事件，DB 可用且 events.persist 开启时写审计表，S3 可用时启用对账，
// confirmations 大于 1 时用 KV 记录确认次数.
func NewFromContext(ctx context.Context, cfg *configs.AppConfig) (*TrackerService, error) {
	sinks := audit.Fanout{audit.NewLogSink(nlog.Component("audit")), audit.MetricsSink{}}

	opts := []Option{
		WithReconcileOptions(tracker.ReconcileOptions{
			Concurrency:  cfg.Reconcile.Concurrency,
			ErrorsAsGone: cfg.Reconcile.ErrorsAsGone,
		}),
	}

	if mqc := ctxPkg.GetMQClient(ctx); mqc != nil && cfg.Events.Enabled {
		sinks = append(sinks, audit.NewMQSink(mqc, cfg.Events))
	}

	if dbc := ctxPkg.GetDBClient(ctx); dbc != nil && cfg.Events.Persist {
		if err := dbc.Migrate(ctx, &model.AuditEvent{}); err != nil {
			return nil, fmt.Errorf("prepare audit table: %w", err)
		}

		dbSink := audit.NewDBSink(dbc.DB)
		sinks = append(sinks, dbSink)
		opts = append(opts, WithAuditLog(dbSink))
	}

	if s3 := ctxPkg.GetS3Client(ctx); s3 != nil {
		opts = append(opts, WithProber(probe.FromConfig(s3, cfg)))
	}

	if kvc := ctxPkg.GetKVClient(ctx); kvc != nil && cfg.Reconcile.Confirmations > 1 {
		ttl := time.Duration(cfg.Reconcile.LedgerTTL) * time.Second
		opts = append(opts, WithConfirmer(probe.NewKVConfirmer(kvc, cfg.Reconcile.Confirmations, ttl)))
	}

	opts = append(opts, WithSink(sinks))

	return NewTrackerService(opts...), nil
}

// AuditLog 返回最近的审计记录.
func (s *TrackerService) AuditLog(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if s.auditLog == nil {
		return nil, ErrAuditDisabled
	}

	return s.auditLog.Recent(ctx, limit)
}

// ReconcileAvailable 是否配置了存在性探测.
func (s *TrackerService) ReconcileAvailable() bool { return s.prober != nil }
