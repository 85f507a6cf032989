package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Prober 查询权威存储中某个文件是否仍然存在.
type Prober interface {
	Exists(ctx context.Context, fileID string) (bool, error)
}

// ProberFunc 把普通函数适配为 Prober.
type ProberFunc func(ctx context.Context, fileID string) (bool, error)

func (f ProberFunc) Exists(ctx context.Context, fileID string) (bool, error) { return f(ctx, fileID) }

// Confirmer 决定一次"已消失"的判定是否足以删除记录. 文件重新出现时调用 Reset.
type Confirmer interface {
	ConfirmGone(ctx context.Context, fileID string) (bool, error)
	Reset(ctx context.Context, fileID string) error
}

type immediateConfirmer struct{}

func (immediateConfirmer) ConfirmGone(context.Context, string) (bool, error) { return true, nil }
func (immediateConfirmer) Reset(context.Context, string) error               { return nil }

// ReconcileOptions 对账参数.
type ReconcileOptions struct {
	// Concurrency 同时进行的探测数，<=0 时为 1.
	Concurrency int
	// ErrorsAsGone 探测失败时按文件已消失处理.
	ErrorsAsGone bool
	// Confirmer 为空时一次判定即删除.
	Confirmer Confirmer
}

// DefaultReconcileOptions 默认参数：探测失败视为消失，单次确认.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{Concurrency: 8, ErrorsAsGone: true}
}

// ReconcileResult 一次对账的汇总.
type ReconcileResult struct {
	Checked      int          `json:"checked"`
	Removed      int          `json:"removed"`
	RemovedBytes int64        `json:"removed_bytes"`
	Kept         int          `json:"kept"`
	Pending      int          `json:"pending"`
	ProbeErrors  int          `json:"probe_errors"`
	Skipped      int          `json:"skipped"`
	Panicked     int          `json:"panicked"`
	Records      []FileRecord `json:"records,omitempty"`
}

type verdict int

const (
	verdictKept verdict = iota
	verdictRemove
	verdictPending
	verdictSkip
)

// Reconcile 对当前索引中的每个文件调用 prober，删除权威存储中已不存在的记录.
//
// 标识快照在读锁下获取，探测在锁外进行，每次删除单独获取写锁. 单个文件的探测错误或 panic
// 不会影响其它文件；探测以外的 panic（例如观察者）计入 Panicked 并返回 ErrSweepPanicked.
// 上下文取消后不再发起新的探测，已完成的删除保留并计入结果.
func (t *Tracker) Reconcile(ctx context.Context, prober Prober, opts ReconcileOptions) (ReconcileResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	if opts.Confirmer == nil {
		opts.Confirmer = immediateConfirmer{}
	}

	t.mu.RLock()
	ids := t.records.ids()
	t.mu.RUnlock()

	var (
		mu     sync.Mutex
		result ReconcileResult
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error().Str("file_id", id).Interface("panic", r).Msg("reconcile item panicked")

					mu.Lock()
					result.Panicked++
					mu.Unlock()
				}
			}()

			v, probeErr := t.judge(ctx, prober, opts, id)

			var (
				ev      Event
				removed bool
			)

			if v == verdictRemove {
				e, err := t.detach(RemovedByScan, func() (string, bool) { return id, true })
				ev, removed = e, err == nil
			}

			mu.Lock()

			result.Checked++
			if probeErr {
				result.ProbeErrors++
			}

			switch v {
			case verdictKept:
				result.Kept++
			case verdictPending:
				result.Pending++
			case verdictSkip:
				result.Skipped++
			case verdictRemove:
				if removed {
					result.Removed++
					result.RemovedBytes += ev.Record.Size
					result.Records = append(result.Records, ev.Record)
				}
			}

			mu.Unlock()

			if removed {
				t.notifyRemoved(ctx, ev)
			}

			return nil
		})
	}

	_ = g.Wait()

	t.logger.Info().
		Int("checked", result.Checked).
		Int("removed", result.Removed).
		Int64("removed_bytes", result.RemovedBytes).
		Int("probe_errors", result.ProbeErrors).
		Int("panicked", result.Panicked).
		Msg("reconcile finished")

	err := ctx.Err()
	if result.Panicked > 0 {
		err = errors.Join(err, fmt.Errorf("%d file(s): %w", result.Panicked, ErrSweepPanicked))
	}

	return result, err
}

// judge 探测单个文件并给出处理结论，第二个返回值表示探测是否失败.
func (t *Tracker) judge(ctx context.Context, prober Prober, opts ReconcileOptions, id string) (v verdict, probeErr bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Str("file_id", id).Interface("panic", r).Msg("probe panicked")

			probeErr = true
			v = verdictSkip

			if opts.ErrorsAsGone {
				v = t.confirm(ctx, opts.Confirmer, id)
			}
		}
	}()

	exists, err := prober.Exists(ctx, id)
	if err != nil {
		t.logger.Warn().Err(err).Str("file_id", id).Msg("existence probe failed")

		// 对账被取消导致的失败不代表文件消失.
		if !opts.ErrorsAsGone || ctx.Err() != nil {
			return verdictSkip, true
		}

		return t.confirm(ctx, opts.Confirmer, id), true
	}

	if exists {
		t.resetVotes(ctx, opts.Confirmer, id)
		return verdictKept, false
	}

	return t.confirm(ctx, opts.Confirmer, id), false
}

// confirm 询问确认账本. 账本出错或 panic 时记为待定，不删除记录.
func (t *Tracker) confirm(ctx context.Context, c Confirmer, id string) (v verdict) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Str("file_id", id).Interface("panic", r).Msg("gone confirmation panicked")

			v = verdictPending
		}
	}()

	ok, err := c.ConfirmGone(ctx, id)
	if err != nil {
		t.logger.Warn().Err(fmt.Errorf("confirm gone: %w", err)).Str("file_id", id).Msg("gone confirmation failed")
		return verdictPending
	}

	if !ok {
		return verdictPending
	}

	return verdictRemove
}

// resetVotes 文件仍存在时清除账本计数. 账本的错误与 panic 只记日志，文件照常保留.
func (t *Tracker) resetVotes(ctx context.Context, c Confirmer, id string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Str("file_id", id).Interface("panic", r).Msg("reset gone confirmation panicked")
		}
	}()

	if err := c.Reset(ctx, id); err != nil {
		t.logger.Warn().Err(err).Str("file_id", id).Msg("reset gone confirmation failed")
	}
}
