// Package queue 定义文件追踪相关的消息主题、负载与统一信封.
//
// 信封 JSON 结构:
//
//	{
//	  "header": {
//	    "topic": "ft.file.recorded",
//	    "trace_id": "optional-trace-id",
//	    "producer": "filetally",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1",
//	    "key": "9f1c3a0be2d4c871"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 发布示例:
//
//	msg, _ := queue.NewWatermillMessage(queue.TopicFileRemoved, payload,
//		queue.WithProducer("filetally"),
//		queue.WithKey(queue.TopicFileRemoved, rec.FileID, string(reason)),
//	)
//	_ = client.Publish(ctx, queue.TopicFileRemoved, msg)
//
// 设置 Key 后消息 ID 由 xxhash 计算，消费端可据此去重.
package queue

import (
	"strconv"
	"strings"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
)

const (
	PayloadVersionV1 string = "v1"
)

// HeaderOption 调整事件头.
type HeaderOption func(*EventHeader)

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	hdr := EventHeader{
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// WithTraceID 设置 TraceID.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// WithOccurredAt 覆盖事件发生时间.
func WithOccurredAt(t time.Time) HeaderOption {
	return func(h *EventHeader) { h.OccurredAt = t.UTC() }
}

// WithKey 由若干字段计算幂等键.
func WithKey(parts ...string) HeaderOption {
	return func(h *EventHeader) { h.Key = DedupeKey(parts...) }
}

// DedupeKey 对字段做 xxhash，返回 16 位十六进制串. 相同输入总是得到相同结果.
func DedupeKey(parts ...string) string {
	sum := xxhash.Sum64String(strings.Join(parts, "|"))
	key := strconv.FormatUint(sum, 16)

	return strings.Repeat("0", 16-len(key)) + key
}

// Encode 将消息封装为 JSON 字节切片.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 字节解码为消息.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造一个 watermill 消息，设置 ID 与元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)
	env := Message[T]{Header: header, Payload: payload}

	data, err := Encode(env)
	if err != nil {
		return nil, err
	}

	id := header.Key
	if id == "" {
		id = watermill.NewUUID()
	}

	msg := message.NewMessage(id, data)
	msg.Metadata.Set("topic", topic)

	if header.TraceID != "" {
		msg.Metadata.Set("trace_id", header.TraceID)
	}

	if header.Producer != "" {
		msg.Metadata.Set("producer", header.Producer)
	}

	msg.Metadata.Set("occurred_at", header.OccurredAt.Format(time.RFC3339Nano))

	if header.Version != "" {
		msg.Metadata.Set("version", header.Version)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
