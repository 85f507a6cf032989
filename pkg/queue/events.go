package queue

import (
	"context"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// Publisher 发布消息的最小接口，mq.Client 满足该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

func publish[T any](ctx context.Context, pub Publisher, topic string, payload T, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(ctx, topic, msg)
}

// PublishFileObserved 发布 ft.file.observed 事件，主要供测试与外部桥接使用.
func PublishFileObserved(ctx context.Context, pub Publisher, payload FileObservedPayload, opts ...HeaderOption) error {
	return publish(ctx, pub, TopicFileObserved, payload, opts...)
}

// ParseFileObserved 将 Watermill 消息解析为强类型 Envelope.
func ParseFileObserved(msg *message.Message) (Message[FileObservedPayload], error) {
	return ParseWatermillMessage[FileObservedPayload](msg)
}

// PublishFileRecorded 发布 ft.file.recorded 事件. 同一文件同一次登记的幂等键相同.
func PublishFileRecorded(ctx context.Context, pub Publisher, rec tracker.FileRecord, channel string, opts ...HeaderOption) error {
	payload := FileRecordedPayload{File: NewFileRef(rec), Channel: channel, ObservedAt: rec.ObservedAt}
	key := WithKey(TopicFileRecorded, rec.FileID, strconv.FormatInt(rec.ObservedAt.UnixNano(), 10))

	return publish(ctx, pub, TopicFileRecorded, payload, append([]HeaderOption{key}, opts...)...)
}

// ParseFileRecorded 解析 ft.file.recorded 事件.
func ParseFileRecorded(msg *message.Message) (Message[FileRecordedPayload], error) {
	return ParseWatermillMessage[FileRecordedPayload](msg)
}

// PublishFileRemoved 发布 ft.file.removed 事件.
func PublishFileRemoved(ctx context.Context, pub Publisher, rec tracker.FileRecord, reason tracker.RemovalReason, opts ...HeaderOption) error {
	payload := FileRemovedPayload{File: NewFileRef(rec), Reason: string(reason)}
	key := WithKey(TopicFileRemoved, rec.FileID, strconv.FormatInt(rec.ObservedAt.UnixNano(), 10))

	return publish(ctx, pub, TopicFileRemoved, payload, append([]HeaderOption{key}, opts...)...)
}

// ParseFileRemoved 解析 ft.file.removed 事件.
func ParseFileRemoved(msg *message.Message) (Message[FileRemovedPayload], error) {
	return ParseWatermillMessage[FileRemovedPayload](msg)
}

// PublishReconcileCompleted 发布 ft.reconcile.completed 事件.
func PublishReconcileCompleted(ctx context.Context, pub Publisher, payload ReconcileCompletedPayload, opts ...HeaderOption) error {
	return publish(ctx, pub, TopicReconcileCompleted, payload, opts...)
}

// ParseReconcileCompleted 解析 ft.reconcile.completed 事件.
func ParseReconcileCompleted(msg *message.Message) (Message[ReconcileCompletedPayload], error) {
	return ParseWatermillMessage[ReconcileCompletedPayload](msg)
}
