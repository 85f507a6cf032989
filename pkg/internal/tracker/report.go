package tracker

import (
	"fmt"
	"math"
	"strings"
)

// Scope 统计报告的范围.
type Scope string

const (
	ScopeChannel Scope = "channel"
	ScopeGlobal  Scope = "global"
)

// ParseScope 解析报告范围，空串视为 channel.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeChannel:
		return ScopeChannel, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("unknown stats scope %q", s)
	}
}

// NoDataMessage 尚未记录任何频道时的报告内容.
const NoDataMessage = "No file data recorded yet."

// SizeParts 报告中使用的大小拆分.
type SizeParts struct {
	GB int64 `json:"gb"`
	MB int64 `json:"mb"`
	KB int64 `json:"kb"`
}

func (p SizeParts) String() string {
	return fmt.Sprintf("%d GB, %d MB, %d KB", p.GB, p.MB, p.KB)
}

// SplitSize 先按 1048576 换算为 MiB，再按 1000 拆分为 GB、MB、KB.
// 这种二进制与十进制混用的单位与既有报告的输出保持一致.
func SplitSize(bytes int64) SizeParts {
	if bytes <= 0 {
		return SizeParts{}
	}

	mb := float64(bytes) / (1024 * 1024)
	whole := math.Trunc(mb)

	return SizeParts{
		GB: int64(math.Floor(mb / 1000)),
		MB: int64(math.Floor(math.Mod(mb, 1000))),
		KB: int64((mb - whole) * 1000),
	}
}

// Render 把快照渲染为 Markdown 文本.
func Render(s Snapshot, scope Scope) string {
	if s.Empty() {
		return NoDataMessage
	}

	var b strings.Builder

	b.WriteString("📊 *File Stats Summary:*\n\n")

	switch scope {
	case ScopeGlobal:
		b.WriteString("🌐 *All Channels*\n")
		fmt.Fprintf(&b, "  • Channels: %d\n", s.Totals.Channels)
		fmt.Fprintf(&b, "  • Files: %d\n", s.Totals.Count)
		fmt.Fprintf(&b, "  • Total Size: %s\n\n", SplitSize(s.Totals.Size))
	default:
		for _, ch := range s.Channels {
			fmt.Fprintf(&b, "📁 *%s*\n", ch.Name)
			fmt.Fprintf(&b, "  • Files: %d\n", ch.Count)
			fmt.Fprintf(&b, "  • Total Size: %s\n\n", SplitSize(ch.Size))
		}
	}

	return b.String()
}

// Report 对当前状态取快照并渲染.
func (t *Tracker) Report(scope Scope) string {
	return Render(t.Snapshot(), scope)
}
