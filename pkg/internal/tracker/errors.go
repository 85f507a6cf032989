package tracker

import "errors"

var (
	// ErrNotFound 按标识或名称删除时没有匹配的记录，属于正常结果.
	ErrNotFound = errors.New("file not found")
	// ErrDuplicate 文件标识已被登记，重复的观察事件不会覆盖已有记录.
	ErrDuplicate = errors.New("file already recorded")
	// ErrNoMedia 消息中没有可识别的媒体.
	ErrNoMedia = errors.New("message carries no recognised media")
	// ErrInvalidEvent 事件缺少文件标识或大小为负.
	ErrInvalidEvent = errors.New("invalid file event")
	// ErrSweepPanicked 对账中有文件的处理发生 panic，其余文件照常完成.
	ErrSweepPanicked = errors.New("reconcile item panicked")
)
