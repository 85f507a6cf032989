package tracker_test

import (
	"context"
	"strings"
	"testing"

	"github.com/yeisme/filetally/pkg/internal/tracker"
)

func TestSplitSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 GB, 0 MB, 0 KB"},
		{2097152, "0 GB, 2 MB, 0 KB"},
		{1572864, "0 GB, 1 MB, 500 KB"},
		{1048576 * 1500, "1 GB, 500 MB, 0 KB"},
		{524288, "0 GB, 0 MB, 500 KB"},
	}

	for _, c := range cases {
		if got := tracker.SplitSize(c.bytes).String(); got != c.want {
			t.Errorf("SplitSize(%d) = %q, want %q", c.bytes, got, c.want)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	tr := tracker.New()

	for _, scope := range []tracker.Scope{tracker.ScopeChannel, tracker.ScopeGlobal} {
		if got := tr.Report(scope); got != tracker.NoDataMessage {
			t.Errorf("Report(%s) = %q, want %q", scope, got, tracker.NoDataMessage)
		}
	}
}

func TestRenderChannelScope(t *testing.T) {
	tr := tracker.New()
	_, _ = tr.Ingest(context.Background(), obs("f1", 100, "General", 2097152))

	want := "📊 *File Stats Summary:*\n\n" +
		"📁 *General*\n" +
		"  • Files: 1\n" +
		"  • Total Size: 0 GB, 2 MB, 0 KB\n\n"

	if got := tr.Report(tracker.ScopeChannel); got != want {
		t.Fatalf("report mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderGlobalScope(t *testing.T) {
	tr := tracker.New()
	ctx := context.Background()

	_, _ = tr.Ingest(ctx, obs("a", 1, "One", 1048576))
	_, _ = tr.Ingest(ctx, obs("b", 2, "Two", 1048576))

	got := tr.Report(tracker.ScopeGlobal)

	for _, part := range []string{"🌐 *All Channels*", "• Channels: 2", "• Files: 2", "• Total Size: 0 GB, 2 MB, 0 KB"} {
		if !strings.Contains(got, part) {
			t.Errorf("global report missing %q:\n%s", part, got)
		}
	}
}

func TestRenderKeepsEmptiedChannel(t *testing.T) {
	tr := tracker.New()
	ctx := context.Background()

	_, _ = tr.Ingest(ctx, obs("a", 1, "Drained", 10))
	_, _ = tr.DeleteByID(ctx, "a")

	got := tr.Report(tracker.ScopeChannel)
	if !strings.Contains(got, "📁 *Drained*\n  • Files: 0\n") {
		t.Fatalf("emptied channel not rendered:\n%s", got)
	}
}

func TestParseScope(t *testing.T) {
	if s, err := tracker.ParseScope(""); err != nil || s != tracker.ScopeChannel {
		t.Fatalf("ParseScope(\"\") = %q, %v", s, err)
	}

	if s, err := tracker.ParseScope("GLOBAL"); err != nil || s != tracker.ScopeGlobal {
		t.Fatalf("ParseScope(GLOBAL) = %q, %v", s, err)
	}

	if _, err := tracker.ParseScope("weekly"); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
}
