package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event 一次索引变化. Channel 是变化发生时频道的显示名，Reason 仅在移除时设置.
type Event struct {
	Record  FileRecord
	Channel string
	Reason  RemovalReason
}

// Observer 接收索引变化的通知，用于审计、指标等旁路. 返回的错误只会被记录，不会回滚修改.
type Observer interface {
	FileRecorded(ctx context.Context, ev Event) error
	FileRemoved(ctx context.Context, ev Event) error
}

// Tracker 文件索引与频道统计的唯一持有者.
//
// 锁约定：mu 同时保护 records 与 channels；写操作持写锁完成索引与统计的全部修改，
// 读操作持读锁拷贝出一致的快照. 通知观察者与外部探测都在锁外进行.
type Tracker struct {
	mu       sync.RWMutex
	records  *recordStore
	channels *channelAggregator

	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
}

// Option 配置 Tracker.
type Option func(*Tracker)

// WithObserver 设置索引变化的观察者.
func WithObserver(o Observer) Option { return func(t *Tracker) { t.observer = o } }

// WithLogger 设置日志记录器.
func WithLogger(l zerolog.Logger) Option { return func(t *Tracker) { t.logger = l } }

// WithClock 替换时间来源，测试使用.
func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// New 创建空的 Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		records:  newRecordStore(),
		channels: newChannelAggregator(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Snapshot 某一时刻频道统计的一致视图.
type Snapshot struct {
	Channels []ChannelStats `json:"channels"`
	Totals   Totals         `json:"totals"`
	TakenAt  time.Time      `json:"taken_at"`
}

// Empty 尚未观察到任何频道.
func (s Snapshot) Empty() bool { return len(s.Channels) == 0 }

// Snapshot 在读锁下拷贝全部频道统计与汇总.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Snapshot{
		Channels: t.channels.perChannel(),
		Totals:   t.channels.totals(),
		TakenAt:  t.now(),
	}
}

// Channel 返回单个频道的统计.
func (t *Tracker) Channel(channelID int64) (ChannelStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.channels.get(channelID)
}

// Get 按标识查询记录.
func (t *Tracker) Get(fileID string) (FileRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.records.get(fileID)
}

// Records 按登记顺序返回全部记录的拷贝.
func (t *Tracker) Records() []FileRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.records.listAll()
}

// Len 当前记录数.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.records.len()
}

// remove 删除记录并通知观察者.
func (t *Tracker) remove(ctx context.Context, reason RemovalReason, lookup func() (string, bool)) (FileRecord, error) {
	ev, err := t.detach(reason, lookup)
	if err != nil {
		return FileRecord{}, err
	}

	t.notifyRemoved(ctx, ev)

	return ev.Record, nil
}

// detach 在写锁下定位并删除记录，同时扣减所属频道的统计. lookup 在持锁期间调用.
func (t *Tracker) detach(reason RemovalReason, lookup func() (string, bool)) (Event, error) {
	t.mu.Lock()

	fileID, ok := lookup()
	if !ok {
		t.mu.Unlock()
		return Event{}, ErrNotFound
	}

	rec, ok := t.records.remove(fileID)
	if !ok {
		t.mu.Unlock()
		return Event{}, ErrNotFound
	}

	clamped := t.channels.decrement(rec.ChannelID, rec.Size)
	ch, _ := t.channels.get(rec.ChannelID)
	t.mu.Unlock()

	if clamped {
		// 统计被截断在 0，说明此前的聚合已与索引不一致.
		t.logger.Warn().
			Str("file_id", rec.FileID).
			Int64("channel_id", rec.ChannelID).
			Int64("size", rec.Size).
			Msg("channel stats clamped at zero")
	}

	return Event{Record: rec, Channel: ch.Name, Reason: reason}, nil
}

func (t *Tracker) notifyRecorded(ctx context.Context, ev Event) {
	if t.observer == nil {
		return
	}

	if err := t.observer.FileRecorded(ctx, ev); err != nil {
		t.logger.Error().Err(err).Str("file_id", ev.Record.FileID).Msg("observer failed on recorded file")
	}
}

func (t *Tracker) notifyRemoved(ctx context.Context, ev Event) {
	if t.observer == nil {
		return
	}

	if err := t.observer.FileRemoved(ctx, ev); err != nil {
		t.logger.Error().Err(err).Str("file_id", ev.Record.FileID).Str("reason", string(ev.Reason)).Msg("observer failed on removed file")
	}
}
