// Package model 定义审计数据库中的表结构.
package model

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// 审计动作.
const (
	ActionRecorded   = "recorded"
	ActionRemoved    = "removed"
	ActionReconciled = "reconciled"
)

// AuditEvent 索引变更的审计记录. 文件索引本身只在内存中，这里仅追加写入.
type AuditEvent struct {
	// ID 形如 "ae_01H..."，按时间有序
	ID        string `gorm:"primaryKey;size:32"  json:"id"`
	Action    string `gorm:"size:32;index"       json:"action"`
	Reason    string `gorm:"size:64"             json:"reason,omitempty"`
	FileID    string `gorm:"size:512;index"      json:"file_id,omitempty"`
	ChannelID int64  `gorm:"index"               json:"channel_id,omitempty"`
	Channel   string `gorm:"size:255"            json:"channel,omitempty"`
	Name      string `gorm:"size:512"            json:"name,omitempty"`
	Kind      string `gorm:"size:32"             json:"kind,omitempty"`
	Size      int64  `json:"size"`
	// Detail 对账摘要等附加信息（JSON）
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time `gorm:"index"     json:"created_at"`
}

// TableName 固定表名.
func (AuditEvent) TableName() string { return "audit_events" }

var (
	// 单调熵源保证同一毫秒内生成的 ID 仍然有序，需加锁使用.
	entropyMu   sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

// NewAuditID 生成审计记录 ID.
func NewAuditID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return "ae_" + ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}
