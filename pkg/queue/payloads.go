package queue

import (
	"time"

	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// EventHeader 所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
	// Key 幂等键，设置后同时作为消息 ID.
	Key string `json:"key,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 索引中的一条文件记录.
type FileRef struct {
	FileID    string `json:"file_id"`
	ChannelID int64  `json:"channel_id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Size      int64  `json:"size"`
}

// FileObservedPayload 传输层投递的原始消息.
type FileObservedPayload struct {
	Message tracker.Message `json:"message"`
	// Source 事件来源，例如 telegram.
	Source string `json:"source,omitempty"`
}

// FileRecordedPayload 文件已登记.
type FileRecordedPayload struct {
	File       FileRef   `json:"file"`
	Channel    string    `json:"channel"`
	ObservedAt time.Time `json:"observed_at"`
}

// FileRemovedPayload 文件已移除.
type FileRemovedPayload struct {
	File   FileRef `json:"file"`
	Reason string  `json:"reason"`
}

// ReconcileCompletedPayload 对账结果摘要.
type ReconcileCompletedPayload struct {
	Checked      int    `json:"checked"`
	Removed      int    `json:"removed"`
	RemovedBytes int64  `json:"removed_bytes"`
	Kept         int    `json:"kept"`
	Pending      int    `json:"pending"`
	ProbeErrors  int    `json:"probe_errors"`
	Skipped      int    `json:"skipped"`
	Trigger      string `json:"trigger,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// NewFileRef 从索引记录构造 FileRef.
func NewFileRef(rec tracker.FileRecord) FileRef {
	return FileRef{
		FileID:    rec.FileID,
		ChannelID: rec.ChannelID,
		Name:      rec.Name,
		Kind:      string(rec.Kind),
		Size:      rec.Size,
	}
}
