package tracker

import (
	"context"
	"fmt"
)

// Media 消息中的单个媒体对象.
type Media struct {
	FileID   string `json:"file_id"             rule:"required"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty" rule:"min=0"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Chat 消息所在的频道或会话.
type Chat struct {
	ID       int64  `json:"id"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// DisplayName 频道标题，否则用户名，否则 Private Chat.
func (c Chat) DisplayName() string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return c.Username
	default:
		return PrivateChatName
	}
}

// Message 传输层投递的一条消息. Photo 可能携带同一张图片的多个分辨率.
type Message struct {
	Chat     Chat    `json:"chat"`
	Document *Media  `json:"document,omitempty"`
	Video    *Media  `json:"video,omitempty"`
	Audio    *Media  `json:"audio,omitempty"`
	Photo    []Media `json:"photo,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// Classify 按 document、video、audio、image 的优先级选出一个媒体. 一条消息最多产生一条记录.
// 图片选择像素最多的版本，像素相同取更大的文件，仍相同取靠后的版本.
func Classify(msg Message) (Observation, bool) {
	var (
		media *Media
		kind  MediaKind
	)

	switch {
	case msg.Document != nil:
		media, kind = msg.Document, KindDocument
	case msg.Video != nil:
		media, kind = msg.Video, KindVideo
	case msg.Audio != nil:
		media, kind = msg.Audio, KindAudio
	case len(msg.Photo) > 0:
		media, kind = largestPhoto(msg.Photo), KindImage
	default:
		return Observation{}, false
	}

	return Observation{
		FileID:      media.FileID,
		ChannelID:   msg.Chat.ID,
		ChannelName: msg.Chat.DisplayName(),
		Size:        media.FileSize,
		Kind:        kind,
		FileName:    media.FileName,
	}, true
}

func largestPhoto(variants []Media) *Media {
	best := &variants[0]
	for i := 1; i < len(variants); i++ {
		v := &variants[i]

		area, bestArea := int64(v.Width)*int64(v.Height), int64(best.Width)*int64(best.Height)
		if area > bestArea || (area == bestArea && v.FileSize >= best.FileSize) {
			best = v
		}
	}

	return best
}

// Observe 对消息分类后登记. 没有可识别的媒体时返回 ErrNoMedia，不做任何修改.
func (t *Tracker) Observe(ctx context.Context, msg Message) (FileRecord, error) {
	obs, ok := Classify(msg)
	if !ok {
		return FileRecord{}, ErrNoMedia
	}

	return t.Ingest(ctx, obs)
}

// Ingest 登记新观察到的文件并更新所属频道的统计.
// 同一文件标识再次出现时返回 ErrDuplicate，已有记录与统计保持不变.
func (t *Tracker) Ingest(ctx context.Context, obs Observation) (FileRecord, error) {
	if obs.FileID == "" {
		return FileRecord{}, fmt.Errorf("%w: missing file id", ErrInvalidEvent)
	}

	if obs.Size < 0 {
		return FileRecord{}, fmt.Errorf("%w: negative size %d", ErrInvalidEvent, obs.Size)
	}

	channelName := obs.ChannelName
	if channelName == "" {
		channelName = PrivateChatName
	}

	rec := FileRecord{
		FileID:     obs.FileID,
		ChannelID:  obs.ChannelID,
		Size:       obs.Size,
		Name:       obs.DisplayName(),
		Kind:       obs.Kind,
		ObservedAt: t.now().UTC(),
	}

	t.mu.Lock()
	if !t.records.put(rec) {
		existing, _ := t.records.get(rec.FileID)
		t.mu.Unlock()

		return existing, ErrDuplicate
	}

	t.channels.ensure(rec.ChannelID, channelName)
	t.channels.increment(rec.ChannelID, rec.Size)
	ch, _ := t.channels.get(rec.ChannelID)
	t.mu.Unlock()

	t.notifyRecorded(ctx, Event{Record: rec, Channel: ch.Name})

	return rec, nil
}
