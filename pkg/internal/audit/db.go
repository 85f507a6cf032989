package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"github.com/yeisme/filetally/pkg/internal/model"
	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// DBSink 把索引变化追加到 audit_events 表.
type DBSink struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDBSink 创建审计表旁路. 调用方负责事先迁移 model.AuditEvent.
func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db, now: time.Now}
}

func (s *DBSink) insert(ctx context.Context, ev *model.AuditEvent) error {
	now := s.now().UTC()
	ev.ID = model.NewAuditID(now)
	ev.CreatedAt = now

	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return nil
}

func fromEvent(action string, ev tracker.Event) *model.AuditEvent {
	return &model.AuditEvent{
		Action:    action,
		Reason:    string(ev.Reason),
		FileID:    ev.Record.FileID,
		ChannelID: ev.Record.ChannelID,
		Channel:   ev.Channel,
		Name:      ev.Record.Name,
		Kind:      string(ev.Record.Kind),
		Size:      ev.Record.Size,
	}
}

// FileRecorded 实现 tracker.Observer.
func (s *DBSink) FileRecorded(ctx context.Context, ev tracker.Event) error {
	return s.insert(ctx, fromEvent(model.ActionRecorded, ev))
}

// FileRemoved 实现 tracker.Observer.
func (s *DBSink) FileRemoved(ctx context.Context, ev tracker.Event) error {
	return s.insert(ctx, fromEvent(model.ActionRemoved, ev))
}

// ReconcileCompleted 写入一条对账摘要，删除明细已由 FileRemoved 记录.
func (s *DBSink) ReconcileCompleted(ctx context.Context, run Run) error {
	summary := run.Result
	summary.Records = nil

	detail, err := sonic.MarshalString(summary)
	if err != nil {
		return fmt.Errorf("marshal reconcile summary: %w", err)
	}

	return s.insert(ctx, &model.AuditEvent{
		Action: model.ActionReconciled,
		Reason: run.Trigger,
		Size:   run.Result.RemovedBytes,
		Detail: detail,
	})
}

// Recent 按时间倒序返回最近的审计记录.
func (s *DBSink) Recent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	var out []model.AuditEvent

	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	return out, nil
}
