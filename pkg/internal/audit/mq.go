package audit

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/filetally/pkg/configs"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	"github.com/yeisme/filetally/pkg/queue"
)

// MQSink 把索引变化发布为 ft.file.* 事件.
type MQSink struct {
	pub queue.Publisher
	cfg configs.EventsConfig
}

// NewMQSink 创建消息旁路，cfg 控制各主题的开关.
func NewMQSink(pub queue.Publisher, cfg configs.EventsConfig) *MQSink {
	return &MQSink{pub: pub, cfg: cfg}
}

func (s *MQSink) headers(ctx context.Context) []queue.HeaderOption {
	opts := []queue.HeaderOption{queue.WithProducer(s.cfg.Producer)}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	return opts
}

// FileRecorded 发布 ft.file.recorded.
func (s *MQSink) FileRecorded(ctx context.Context, ev tracker.Event) error {
	if !s.cfg.Enabled || !s.cfg.Recorded {
		return nil
	}

	return queue.PublishFileRecorded(ctx, s.pub, ev.Record, ev.Channel, s.headers(ctx)...)
}

// FileRemoved 发布 ft.file.removed.
func (s *MQSink) FileRemoved(ctx context.Context, ev tracker.Event) error {
	if !s.cfg.Enabled || !s.cfg.Removed {
		return nil
	}

	return queue.PublishFileRemoved(ctx, s.pub, ev.Record, ev.Reason, s.headers(ctx)...)
}

// ReconcileCompleted 发布 ft.reconcile.completed.
func (s *MQSink) ReconcileCompleted(ctx context.Context, run Run) error {
	if !s.cfg.Enabled {
		return nil
	}

	return queue.PublishReconcileCompleted(ctx, s.pub, queue.ReconcileCompletedPayload{
		Checked:      run.Result.Checked,
		Removed:      run.Result.Removed,
		RemovedBytes: run.Result.RemovedBytes,
		Kept:         run.Result.Kept,
		Pending:      run.Result.Pending,
		ProbeErrors:  run.Result.ProbeErrors,
		Skipped:      run.Result.Skipped,
		Trigger:      run.Trigger,
		DurationMS:   run.Duration.Milliseconds(),
	}, s.headers(ctx)...)
}
