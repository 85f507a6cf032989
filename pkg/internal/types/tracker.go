// Package types 定义 HTTP 接口的请求与响应结构.
package types

import (
	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// ObserveResponse 文件事件的处理结果. Recorded 为 false 时 Reason 说明原因.
type ObserveResponse struct {
	Recorded bool                `json:"recorded"`
	Reason   string              `json:"reason,omitempty"`
	Record   *tracker.FileRecord `json:"record,omitempty"`
}

// 未登记原因.
const (
	ReasonNoMedia   = "no_media"
	ReasonDuplicate = "duplicate"
)

// DeleteByNameQuery 按名称删除.
type DeleteByNameQuery struct {
	Name string `form:"name" json:"name" rule:"required,max=1024"`
}

// DeleteResponse 删除结果.
type DeleteResponse struct {
	Removed tracker.FileRecord `json:"removed"`
	Message string             `json:"message"`
}

// StatsQuery 统计报告参数.
type StatsQuery struct {
	Scope  string `form:"scope"  json:"scope"  rule:"omitempty,oneof=channel global"`
	Format string `form:"format" json:"format" rule:"omitempty,oneof=text json"`
}

// StatsResponse JSON 格式的统计报告.
type StatsResponse struct {
	Scope    tracker.Scope    `json:"scope"`
	Text     string           `json:"text"`
	Snapshot tracker.Snapshot `json:"snapshot"`
}

// ListFilesQuery 记录列表参数.
type ListFilesQuery struct {
	ChannelID *int64 `form:"channel_id" json:"channel_id"`
}

// ListFilesResponse 记录列表.
type ListFilesResponse struct {
	Files []tracker.FileRecord `json:"files"`
	Total int                  `json:"total"`
}

// AuditQuery 审计记录查询参数.
type AuditQuery struct {
	Limit int `form:"limit" json:"limit" rule:"omitempty,min=1,max=500"`
}

// DefaultAuditLimit 未指定 limit 时返回的条数.
const DefaultAuditLimit = 50
