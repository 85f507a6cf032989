package audit

import (
	"context"
	"errors"

	"github.com/yeisme/filetally/pkg/internal/tracker"
	"github.com/yeisme/filetally/pkg/metrics"
)

// MetricsSink 更新 prometheus 计数器.
type MetricsSink struct{}

// FileRecorded 实现 tracker.Observer.
func (MetricsSink) FileRecorded(_ context.Context, ev tracker.Event) error {
	metrics.FilesIngested.WithLabelValues(string(ev.Record.Kind)).Inc()
	return nil
}

// FileRemoved 实现 tracker.Observer.
func (MetricsSink) FileRemoved(_ context.Context, ev tracker.Event) error {
	metrics.FilesRemoved.WithLabelValues(string(ev.Reason)).Inc()
	return nil
}

// ReconcileCompleted 记录对账次数与耗时.
func (MetricsSink) ReconcileCompleted(_ context.Context, run Run) error {
	result := "ok"

	switch {
	case errors.Is(run.Err, context.Canceled), errors.Is(run.Err, context.DeadlineExceeded):
		result = "canceled"
	case run.Err != nil:
		result = "failed"
	}

	metrics.ReconcileRuns.WithLabelValues(result).Inc()
	metrics.ReconcileDuration.Observe(run.Duration.Seconds())

	return nil
}
