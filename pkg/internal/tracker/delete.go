package tracker

import "context"

// DeleteByID 删除指定标识的记录并扣减频道统计. 记录不存在时返回 ErrNotFound.
func (t *Tracker) DeleteByID(ctx context.Context, fileID string) (FileRecord, error) {
	return t.remove(ctx, RemovedByID, func() (string, bool) { return fileID, true })
}

// DeleteByName 删除第一个（按登记顺序）显示名完全匹配的记录. 同名的其它记录保持不变.
func (t *Tracker) DeleteByName(ctx context.Context, name string) (FileRecord, error) {
	return t.remove(ctx, RemovedByName, func() (string, bool) { return t.records.findByName(name) })
}
