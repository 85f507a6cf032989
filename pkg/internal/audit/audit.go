// Package audit 把索引变化分发到旁路：日志、指标、消息队列与审计表.
//
// 每个旁路都实现 tracker.Observer，Fanout 把它们组合成一个. 旁路失败不会回滚索引修改.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// Sink 既接收索引变化，也接收对账完成的摘要.
type Sink interface {
	tracker.Observer
	ReconcileCompleted(ctx context.Context, run Run) error
}

// Run 一次对账的执行信息.
type Run struct {
	Result   tracker.ReconcileResult
	Trigger  string
	Duration time.Duration
	Err      error
}

// Fanout 依次通知全部 Sink，汇总错误.
type Fanout []Sink

var _ Sink = Fanout(nil)

// FileRecorded 实现 tracker.Observer.
func (f Fanout) FileRecorded(ctx context.Context, ev tracker.Event) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.FileRecorded(ctx, ev))
	}

	return errors.Join(errs...)
}

// FileRemoved 实现 tracker.Observer.
func (f Fanout) FileRemoved(ctx context.Context, ev tracker.Event) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.FileRemoved(ctx, ev))
	}

	return errors.Join(errs...)
}

// ReconcileCompleted 通知全部 Sink.
func (f Fanout) ReconcileCompleted(ctx context.Context, run Run) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.ReconcileCompleted(ctx, run))
	}

	return errors.Join(errs...)
}
