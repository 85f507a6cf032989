// Package tracker 维护聊天频道中观察到的文件索引及其按频道聚合的统计，并负责与权威存储对账.
//
// 文件索引（文件标识 -> 所属频道、大小、显示名）与频道统计（数量、总字节数）由同一把锁保护，
// 任一操作对两者的修改要么同时生效，要么都不生效。对任意频道始终满足：
//
//	count == 该频道下记录数, size == 该频道下记录大小之和
//
// 所有修改都经由 Ingest、DeleteByID、DeleteByName 与 Reconcile 完成，调用方拿到的都是值拷贝.
package tracker

import (
	"fmt"
	"time"
)

// MediaKind 文件的媒体类型.
type MediaKind string

const (
	KindDocument MediaKind = "document"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindImage    MediaKind = "image"
)

// Label 返回用于日志展示的首字母大写形式，例如 Document.
func (k MediaKind) Label() string {
	switch k {
	case KindDocument:
		return "Document"
	case KindVideo:
		return "Video"
	case KindAudio:
		return "Audio"
	case KindImage:
		return "Image"
	default:
		return string(k)
	}
}

// PrivateChatName 频道既无标题也无用户名时使用的显示名.
const PrivateChatName = "Private Chat"

// FileRecord 记录某个文件属于某个频道以及它的大小. 创建后不再修改.
type FileRecord struct {
	FileID     string    `json:"file_id"`
	ChannelID  int64     `json:"channel_id"`
	Size       int64     `json:"size"`
	Name       string    `json:"name"`
	Kind       MediaKind `json:"kind"`
	ObservedAt time.Time `json:"observed_at"`
}

// ChannelStats 单个频道的聚合统计.
type ChannelStats struct {
	ChannelID int64  `json:"channel_id"`
	Name      string `json:"name"`
	Count     int64  `json:"count"`
	Size      int64  `json:"size"`
}

// Totals 全部频道的汇总.
type Totals struct {
	Channels int   `json:"channels"`
	Count    int64 `json:"count"`
	Size     int64 `json:"size"`
}

// Observation 已经解析好的单个文件观察事件.
type Observation struct {
	FileID      string
	ChannelID   int64
	ChannelName string
	Size        int64
	Kind        MediaKind
	FileName    string
}

// DisplayName 返回记录使用的显示名，上游未提供文件名时合成 "{kind}_{fileID}".
func (o Observation) DisplayName() string {
	if o.FileName != "" {
		return o.FileName
	}

	return fmt.Sprintf("%s_%s", o.Kind, o.FileID)
}

// RemovalReason 记录被移除的原因.
type RemovalReason string

const (
	RemovedByID   RemovalReason = "deleted_by_id"
	RemovedByName RemovalReason = "deleted_by_name"
	RemovedByScan RemovalReason = "reconciled"
)
