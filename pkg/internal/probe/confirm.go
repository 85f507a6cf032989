package probe

import (
	"context"
	"time"

	"github.com/yeisme/filetally/pkg/cache"
	"github.com/yeisme/filetally/pkg/internal/storage/kv"
)

// LedgerNamespace 确认账本在 KV 中的键前缀.
const LedgerNamespace = "ledger"

// KVConfirmer 记录每个文件连续被判定为"已消失"的次数，达到阈值才允许删除.
// 计数带 TTL，长时间没有新的判定时自动清零. 同一文件在一次对账中只会被判定一次，
// 因此同一个键不会被并发递增.
type KVConfirmer struct {
	ledger   *cache.Cache
	required int
	ttl      time.Duration
}

// NewKVConfirmer 创建确认账本，required<=1 时每次判定都直接通过.
func NewKVConfirmer(store kv.KVStore, required int, ttl time.Duration) *KVConfirmer {
	if required < 1 {
		required = 1
	}

	return &KVConfirmer{
		ledger:   cache.NewCache(store, cache.WithNamespace(LedgerNamespace)),
		required: required,
		ttl:      ttl,
	}
}

// Required 需要的连续判定次数.
func (c *KVConfirmer) Required() int { return c.required }

// ConfirmGone 计数加一，达到阈值时清除计数并返回 true.
func (c *KVConfirmer) ConfirmGone(ctx context.Context, fileID string) (bool, error) {
	if c.required <= 1 {
		return true, nil
	}

	n, err := cache.Incr(ctx, c.ledger, fileID, c.ttl)
	if err != nil {
		return false, err
	}

	if n < c.required {
		return false, nil
	}

	return true, c.ledger.Delete(ctx, fileID)
}

// Reset 文件重新出现或被显式删除时清除计数.
func (c *KVConfirmer) Reset(ctx context.Context, fileID string) error {
	if c.required <= 1 {
		return nil
	}

	return c.ledger.Delete(ctx, fileID)
}

// ResetAll 清空整个账本.
func (c *KVConfirmer) ResetAll(ctx context.Context) error {
	return c.ledger.Clear(ctx)
}

// PendingEntry 尚未达到阈值的文件.
type PendingEntry struct {
	FileID string `json:"file_id"`
	Votes  int    `json:"votes"`
}

// Pending 列出账本中尚未达到阈值的文件.
func (c *KVConfirmer) Pending(ctx context.Context) ([]PendingEntry, error) {
	ids, err := c.ledger.Keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PendingEntry, 0, len(ids))

	for _, id := range ids {
		n, ok, err := cache.Lookup[int](ctx, c.ledger, id)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, PendingEntry{FileID: id, Votes: n})
		}
	}

	return out, nil
}
