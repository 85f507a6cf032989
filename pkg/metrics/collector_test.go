package metrics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yeisme/filetally/pkg/internal/tracker"
	"github.com/yeisme/filetally/pkg/metrics"
)

func TestTrackerCollector(t *testing.T) {
	tr := tracker.New()
	ctx := context.Background()

	_, _ = tr.Ingest(ctx, tracker.Observation{FileID: "a", ChannelID: 100, ChannelName: "General", Size: 2048, Kind: tracker.KindDocument})
	_, _ = tr.Ingest(ctx, tracker.Observation{FileID: "b", ChannelID: 100, ChannelName: "General", Size: 1024, Kind: tracker.KindImage})
	_, _ = tr.Ingest(ctx, tracker.Observation{FileID: "c", ChannelID: 7, ChannelName: "Ops", Size: 1, Kind: tracker.KindAudio})

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(metrics.NewTrackerCollector(tr))

	expected := `
# HELP filetally_channel_files Files currently tracked per channel
# TYPE filetally_channel_files gauge
filetally_channel_files{channel="General",channel_id="100"} 2
filetally_channel_files{channel="Ops",channel_id="7"} 1
# HELP filetally_tracked_bytes Bytes currently tracked across all channels
# TYPE filetally_tracked_bytes gauge
filetally_tracked_bytes 3073
`

	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "filetally_channel_files", "filetally_tracked_bytes"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestCollectorEmptyTracker(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(metrics.NewTrackerCollector(tracker.New()))

	if n := testutil.CollectAndCount(metrics.NewTrackerCollector(tracker.New())); n != 3 {
		t.Fatalf("collected %d metrics, want 3 global gauges", n)
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}
