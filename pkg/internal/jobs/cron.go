// Package jobs 注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/filetally/pkg/configs"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/log"
	"github.com/yeisme/filetally/pkg/scheduler"
)

// RegisterCronJobs 注册定时对账. 未启用对账或没有存在性探测时不注册任何任务.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, svc *service.TrackerService, cfg configs.ReconcileConfig) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if svc == nil {
		return fmt.Errorf("tracker service is nil")
	}

	l := log.Component("jobs")

	if !cfg.Enabled || cfg.Cron == "" {
		l.Info().Msg("scheduled reconciliation disabled")
		return nil
	}

	if !svc.ReconcileAvailable() {
		l.Warn().Msg("no existence probe configured, scheduled reconciliation skipped")
		return nil
	}

	if err := sched.AddCron(ctx, JobReconcileSweep, cfg.Cron, func(ctx context.Context) error {
		return runReconcile(ctx, svc)
	}); err != nil {
		return err
	}

	if cfg.Confirmations > 1 {
		return sched.AddCron(ctx, JobLedgerReport, CronLedgerReport, func(ctx context.Context) error {
			return reportPending(ctx, svc)
		})
	}

	return nil
}

// runReconcile 执行一次定时对账. 手动对账正在运行时本次跳过.
func runReconcile(ctx context.Context, svc *service.TrackerService) error {
	l := log.Component("jobs").With().Str("job", JobReconcileSweep).Logger()

	res, err := svc.Reconcile(ctx, service.TriggerScheduled)
	if errors.Is(err, service.ErrReconcileRunning) {
		l.Info().Msg("reconciliation already running, skipped")
		return nil
	}

	if err != nil {
		return err
	}

	l.Info().Int("checked", res.Checked).Int("removed", res.Removed).Int("pending", res.Pending).Msg("scheduled reconciliation done")

	return nil
}

func reportPending(ctx context.Context, svc *service.TrackerService) error {
	pending, err := svc.PendingRemovals(ctx)
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		l := log.Component("jobs")
		l.Info().Str("job", JobLedgerReport).Int("pending", len(pending)).Msg("files awaiting gone confirmation")
	}

	return nil
}
