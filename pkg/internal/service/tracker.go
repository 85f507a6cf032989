// Package service 编排文件追踪的业务操作：登记、删除、对账与统计报告.
//
// 每个操作都在独立的 span 中执行，panic 会被恢复并转换为 ErrInternal，进程继续运行.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ftcontext "github.com/yeisme/filetally/pkg/context"
	"github.com/yeisme/filetally/pkg/internal/audit"
	"github.com/yeisme/filetally/pkg/internal/probe"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	nlog "github.com/yeisme/filetally/pkg/log"
	"github.com/yeisme/filetally/pkg/metrics"
	"github.com/yeisme/filetally/pkg/tracing"
)

// Greeting 问候语.
const Greeting = "Hello! I'm your File Tracker Bot 📊"

// 触发对账的来源.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

var (
	// ErrInternal 操作内部出现 panic 等未预期错误.
	ErrInternal = errors.New("internal error")
	// ErrReconcileUnavailable 未配置存在性探测.
	ErrReconcileUnavailable = errors.New("reconciliation unavailable: no existence probe configured")
	// ErrReconcileRunning 已有对账在执行.
	ErrReconcileRunning = errors.New("reconciliation already running")
)

// TrackerService 持有唯一的 Tracker，并把索引变化分发到旁路.
type TrackerService struct {
	tracker   *tracker.Tracker
	sink      audit.Sink
	prober    tracker.Prober
	confirmer *probe.KVConfirmer
	auditLog  *audit.DBSink
	opts      tracker.ReconcileOptions
	logger    zerolog.Logger

	reconcileMu sync.Mutex
	runMu       sync.Mutex
	lastRun     *ReconcileRun
}

// ReconcileRun 最近一次对账的记录.
type ReconcileRun struct {
	Trigger    string                  `json:"trigger"`
	StartedAt  time.Time               `json:"started_at"`
	DurationMS int64                   `json:"duration_ms"`
	Result     tracker.ReconcileResult `json:"result"`
	Error      string                  `json:"error,omitempty"`
}

// Option 配置 TrackerService.
type Option func(*TrackerService)

// WithSink 设置旁路.
func WithSink(s audit.Sink) Option { return func(t *TrackerService) { t.sink = s } }

// WithProber 设置存在性探测.
func WithProber(p tracker.Prober) Option { return func(t *TrackerService) { t.prober = p } }

// WithConfirmer 设置"已消失"确认账本.
func WithConfirmer(c *probe.KVConfirmer) Option {
	return func(t *TrackerService) { t.confirmer = c }
}

// WithReconcileOptions 设置对账参数.
func WithReconcileOptions(o tracker.ReconcileOptions) Option {
	return func(t *TrackerService) { t.opts = o }
}

// WithLogger 替换默认 logger.
func WithLogger(l zerolog.Logger) Option { return func(t *TrackerService) { t.logger = l } }

// NewTrackerService 创建服务.
func NewTrackerService(opts ...Option) *TrackerService {
	s := &TrackerService{
		opts:   tracker.DefaultReconcileOptions(),
		logger: nlog.Component("tracker"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.confirmer != nil {
		s.opts.Confirmer = s.confirmer
	}

	trackerOpts := []tracker.Option{tracker.WithLogger(s.logger)}
	if s.sink != nil {
		trackerOpts = append(trackerOpts, tracker.WithObserver(s.sink))
	}

	s.tracker = tracker.New(trackerOpts...)

	return s
}

// Tracker 返回底层索引，供指标采集等只读场景使用.
func (s *TrackerService) Tracker() *tracker.Tracker { return s.tracker }

// guard 把 panic 转换为 ErrInternal.
func (s *TrackerService) guard(ctx context.Context, op string, err *error) {
	if r := recover(); r != nil {
		l := ftcontext.WithTraceContext(ctx, s.logger)
		l.Error().Str("op", op).Interface("panic", r).Msg("operation panicked")

		*err = fmt.Errorf("%s: %w", op, ErrInternal)
	}
}

// Observe 处理一条传输层消息. 没有媒体、重复或非法的事件只记日志，不视为故障.
func (s *TrackerService) Observe(ctx context.Context, msg tracker.Message) (rec tracker.FileRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "tracker.Observe",
		trace.WithAttributes(attribute.Int64("channel_id", msg.Chat.ID)))

	defer func() { tracing.EndSpan(span, err) }()
	defer s.guard(ctx, "observe", &err)

	rec, err = s.tracker.Observe(ctx, msg)

	l := ftcontext.WithTraceContext(ctx, s.logger)

	switch {
	case errors.Is(err, tracker.ErrNoMedia):
		metrics.ObservationsSkipped.WithLabelValues("no_media").Inc()
		l.Debug().Int64("channel_id", msg.Chat.ID).Msg("message carries no media")
	case errors.Is(err, tracker.ErrDuplicate):
		metrics.ObservationsSkipped.WithLabelValues("duplicate").Inc()
		l.Debug().Str("file_id", rec.FileID).Msg("file already tracked")
	case errors.Is(err, tracker.ErrInvalidEvent):
		metrics.ObservationsSkipped.WithLabelValues("invalid").Inc()
		l.Info().Err(err).Int64("channel_id", msg.Chat.ID).Msg("malformed file event")
	}

	return rec, err
}

// DeleteByID 按文件标识删除记录.
func (s *TrackerService) DeleteByID(ctx context.Context, fileID string) (rec tracker.FileRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "tracker.DeleteByID", trace.WithAttributes(attribute.String("file_id", fileID)))

	defer func() { tracing.EndSpan(span, ignoreNotFound(err)) }()
	defer s.guard(ctx, "delete by id", &err)

	rec, err = s.tracker.DeleteByID(ctx, fileID)
	if err == nil {
		s.forgetVotes(ctx, rec.FileID)
	}

	return rec, err
}

// DeleteByName 按显示名删除最早登记的一条记录.
func (s *TrackerService) DeleteByName(ctx context.Context, name string) (rec tracker.FileRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "tracker.DeleteByName", trace.WithAttributes(attribute.String("name", name)))

	defer func() { tracing.EndSpan(span, ignoreNotFound(err)) }()
	defer s.guard(ctx, "delete by name", &err)

	rec, err = s.tracker.DeleteByName(ctx, name)
	if err == nil {
		s.forgetVotes(ctx, rec.FileID)
	}

	return rec, err
}

// forgetVotes 记录被显式删除后清掉账本中残留的"已消失"计数.
func (s *TrackerService) forgetVotes(ctx context.Context, fileID string) {
	if s.confirmer == nil {
		return
	}

	if err := s.confirmer.Reset(ctx, fileID); err != nil {
		l := ftcontext.WithTraceContext(ctx, s.logger)
		l.Warn().Err(err).Str("file_id", fileID).Msg("clear gone votes failed")
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, tracker.ErrNotFound) {
		return nil
	}

	return err
}

// Reconcile 执行一次对账. 同一时刻只允许一个对账运行.
func (s *TrackerService) Reconcile(ctx context.Context, trigger string) (res tracker.ReconcileResult, err error) {
	if s.prober == nil {
		return res, ErrReconcileUnavailable
	}

	if !s.reconcileMu.TryLock() {
		return res, ErrReconcileRunning
	}
	defer s.reconcileMu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "tracker.Reconcile", trace.WithAttributes(attribute.String("trigger", trigger)))

	defer func() { tracing.EndSpan(span, err) }()
	defer s.guard(ctx, "reconcile", &err)

	start := time.Now()
	res, err = s.tracker.Reconcile(ctx, s.prober, s.opts)
	elapsed := time.Since(start)

	if errors.Is(err, tracker.ErrSweepPanicked) {
		l := ftcontext.WithTraceContext(ctx, s.logger)
		l.Error().Int("panicked", res.Panicked).Msg("reconcile finished with panicking items")

		err = fmt.Errorf("reconcile: %w: %w", ErrInternal, err)
	}

	span.SetAttributes(
		attribute.Int("checked", res.Checked),
		attribute.Int("removed", res.Removed),
		attribute.Int("probe_errors", res.ProbeErrors),
	)

	run := &ReconcileRun{Trigger: trigger, StartedAt: start.UTC(), DurationMS: elapsed.Milliseconds(), Result: res}
	if err != nil {
		run.Error = err.Error()
	}

	s.runMu.Lock()
	s.lastRun = run
	s.runMu.Unlock()

	if s.sink != nil {
		if e := s.sink.ReconcileCompleted(ctx, audit.Run{Result: res, Trigger: trigger, Duration: elapsed, Err: err}); e != nil {
			l := ftcontext.WithTraceContext(ctx, s.logger)
			l.Error().Err(e).Msg("reconcile sink failed")
		}
	}

	return res, err
}

// LastReconcile 返回最近完成的一次对账.
func (s *TrackerService) LastReconcile() (*ReconcileRun, bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.lastRun == nil {
		return nil, false
	}

	run := *s.lastRun

	return &run, true
}

// PendingRemovals 列出尚未达到确认次数的文件.
func (s *TrackerService) PendingRemovals(ctx context.Context) ([]probe.PendingEntry, error) {
	if s.confirmer == nil {
		return []probe.PendingEntry{}, nil
	}

	return s.confirmer.Pending(ctx)
}

// ClearPendingRemovals 清空确认账本，所有文件重新从零计数.
func (s *TrackerService) ClearPendingRemovals(ctx context.Context) error {
	if s.confirmer == nil {
		return nil
	}

	return s.confirmer.ResetAll(ctx)
}

// Report 渲染统计报告.
func (s *TrackerService) Report(ctx context.Context, scope tracker.Scope) (out string, err error) {
	_, span := tracing.StartSpan(ctx, "tracker.Report", trace.WithAttributes(attribute.String("scope", string(scope))))

	defer func() { tracing.EndSpan(span, err) }()
	defer s.guard(ctx, "report", &err)

	return s.tracker.Report(scope), nil
}

// Snapshot 返回频道统计快照.
func (s *TrackerService) Snapshot() tracker.Snapshot { return s.tracker.Snapshot() }

// Records 返回记录列表，channelID 非空时只返回该频道的记录.
func (s *TrackerService) Records(channelID *int64) []tracker.FileRecord {
	all := s.tracker.Records()
	if channelID == nil {
		return all
	}

	out := make([]tracker.FileRecord, 0, len(all))

	for _, r := range all {
		if r.ChannelID == *channelID {
			out = append(out, r)
		}
	}

	return out
}

// Get 按标识查询单条记录.
func (s *TrackerService) Get(fileID string) (tracker.FileRecord, bool) {
	return s.tracker.Get(fileID)
}
