package tracker

// channelAggregator 频道标识到统计的映射，按首次出现的顺序输出.
// 计数为 0 的频道保留并继续出现在报告中.
type channelAggregator struct {
	stats map[int64]*ChannelStats
	order []int64
}

func newChannelAggregator() *channelAggregator {
	return &channelAggregator{stats: make(map[int64]*ChannelStats)}
}

// ensure 频道不存在时以零值创建；已存在时保持原名（先到先得）.
func (a *channelAggregator) ensure(channelID int64, name string) {
	if _, ok := a.stats[channelID]; ok {
		return
	}

	a.stats[channelID] = &ChannelStats{ChannelID: channelID, Name: name}
	a.order = append(a.order, channelID)
}

func (a *channelAggregator) increment(channelID int64, size int64) {
	st, ok := a.stats[channelID]
	if !ok {
		return
	}

	st.Count++
	st.Size += size
}

// decrement 数量减 1、大小减 size，两个字段各自在 0 处截断.
// 返回 true 表示发生了截断，即统计与索引已经不一致.
func (a *channelAggregator) decrement(channelID int64, size int64) bool {
	st, ok := a.stats[channelID]
	if !ok {
		return true
	}

	clamped := false

	st.Count--
	if st.Count < 0 {
		st.Count = 0
		clamped = true
	}

	st.Size -= size
	if st.Size < 0 {
		st.Size = 0
		clamped = true
	}

	return clamped
}

func (a *channelAggregator) get(channelID int64) (ChannelStats, bool) {
	st, ok := a.stats[channelID]
	if !ok {
		return ChannelStats{}, false
	}

	return *st, true
}

func (a *channelAggregator) totals() Totals {
	t := Totals{Channels: len(a.stats)}
	for _, st := range a.stats {
		t.Count += st.Count
		t.Size += st.Size
	}

	return t
}

func (a *channelAggregator) perChannel() []ChannelStats {
	out := make([]ChannelStats, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.stats[id])
	}

	return out
}
