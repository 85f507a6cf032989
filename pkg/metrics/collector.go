package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/filetally/pkg/internal/tracker"
)

// SnapshotSource 提供频道统计快照.
type SnapshotSource interface {
	Snapshot() tracker.Snapshot
}

// TrackerCollector 在每次抓取时读取一次快照，导出按频道及全局的文件数与字节数.
type TrackerCollector struct {
	source SnapshotSource

	channelFiles *prometheus.Desc
	channelBytes *prometheus.Desc
	totalFiles   *prometheus.Desc
	totalBytes   *prometheus.Desc
	channels     *prometheus.Desc
}

// NewTrackerCollector 创建采集器.
func NewTrackerCollector(source SnapshotSource) *TrackerCollector {
	labels := []string{"channel_id", "channel"}

	return &TrackerCollector{
		source:       source,
		channelFiles: prometheus.NewDesc(namespace+"_channel_files", "Files currently tracked per channel", labels, nil),
		channelBytes: prometheus.NewDesc(namespace+"_channel_bytes", "Bytes currently tracked per channel", labels, nil),
		totalFiles:   prometheus.NewDesc(namespace+"_tracked_files", "Files currently tracked across all channels", nil, nil),
		totalBytes:   prometheus.NewDesc(namespace+"_tracked_bytes", "Bytes currently tracked across all channels", nil, nil),
		channels:     prometheus.NewDesc(namespace+"_channels", "Channels observed", nil, nil),
	}
}

// Describe 实现 prometheus.Collector.
func (c *TrackerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.channelFiles
	ch <- c.channelBytes
	ch <- c.totalFiles
	ch <- c.totalBytes
	ch <- c.channels
}

// Collect 实现 prometheus.Collector.
func (c *TrackerCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()

	for _, st := range snap.Channels {
		id := strconv.FormatInt(st.ChannelID, 10)

		ch <- prometheus.MustNewConstMetric(c.channelFiles, prometheus.GaugeValue, float64(st.Count), id, st.Name)
		ch <- prometheus.MustNewConstMetric(c.channelBytes, prometheus.GaugeValue, float64(st.Size), id, st.Name)
	}

	ch <- prometheus.MustNewConstMetric(c.totalFiles, prometheus.GaugeValue, float64(snap.Totals.Count))
	ch <- prometheus.MustNewConstMetric(c.totalBytes, prometheus.GaugeValue, float64(snap.Totals.Size))
	ch <- prometheus.MustNewConstMetric(c.channels, prometheus.GaugeValue, float64(snap.Totals.Channels))
}
