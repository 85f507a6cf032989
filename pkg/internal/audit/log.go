package audit

import (
	"context"

	"github.com/rs/zerolog"

	ftcontext "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// LogSink 为每个登记的文件写一行审计日志.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink 创建日志旁路.
func NewLogSink(l zerolog.Logger) *LogSink { return &LogSink{logger: l} }

// FileRecorded 输出 "Processed Document in Channel: 123 bytes".
func (s *LogSink) FileRecorded(ctx context.Context, ev tracker.Event) error {
	l := ftcontext.WithTraceContext(ctx, s.logger)
	l.Info().
		Str("file_id", ev.Record.FileID).
		Int64("channel_id", ev.Record.ChannelID).
		Str("kind", string(ev.Record.Kind)).
		Int64("size", ev.Record.Size).
		Msgf("Processed %s in %s: %d bytes", ev.Record.Kind.Label(), ev.Channel, ev.Record.Size)

	return nil
}

// FileRemoved 记录移除原因.
func (s *LogSink) FileRemoved(ctx context.Context, ev tracker.Event) error {
	l := ftcontext.WithTraceContext(ctx, s.logger)
	l.Info().
		Str("file_id", ev.Record.FileID).
		Int64("channel_id", ev.Record.ChannelID).
		Str("reason", string(ev.Reason)).
		Int64("size", ev.Record.Size).
		Msgf("Removed %s from %s", ev.Record.Name, ev.Channel)

	return nil
}

// ReconcileCompleted 输出对账摘要.
func (s *LogSink) ReconcileCompleted(ctx context.Context, run Run) error {
	l := ftcontext.WithTraceContext(ctx, s.logger)

	ev := l.Info()
	if run.Err != nil {
		ev = l.Warn().Err(run.Err)
	}

	ev.Str("trigger", run.Trigger).
		Int("checked", run.Result.Checked).
		Int("removed", run.Result.Removed).
		Int("pending", run.Result.Pending).
		Int("probe_errors", run.Result.ProbeErrors).
		Dur("duration", run.Duration).
		Msg("reconcile completed")

	return nil
}
