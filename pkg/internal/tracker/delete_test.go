package tracker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/filetally/pkg/internal/tracker"
)

func TestDeleteByID(t *testing.T) {
	o := newRecordingObserver()
	tr := tracker.New(tracker.WithObserver(o))
	ctx := context.Background()

	_, _ = tr.Ingest(ctx, obs("f1", 1, "A", 10))
	_, _ = tr.Ingest(ctx, obs("f2", 1, "A", 20))

	rec, err := tr.DeleteByID(ctx, "f1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if rec.Size != 10 {
		t.Errorf("removed size = %d, want 10", rec.Size)
	}

	st, _ := tr.Channel(1)
	if st.Count != 1 || st.Size != 20 {
		t.Fatalf("stats = %+v, want count=1 size=20", st)
	}

	if o.removed["f1"] != tracker.RemovedByID {
		t.Errorf("observer reason = %q", o.removed["f1"])
	}

	if _, err := tr.DeleteByID(ctx, "f1"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}

	assertConsistent(t, tr)
}

func TestDeleteByNameNotFound(t *testing.T) {
	tr := tracker.New()
	ctx := context.Background()

	_, _ = tr.Ingest(ctx, obs("f1", 1, "A", 10))
	before := tr.Snapshot()

	if _, err := tr.DeleteByName(ctx, "report.pdf"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	after := tr.Snapshot()
	if before.Totals != after.Totals {
		t.Fatalf("totals changed: %+v -> %+v", before.Totals, after.Totals)
	}
}

func TestDeleteByNameRemovesFirstMatchOnly(t *testing.T) {
	tr := tracker.New()
	ctx := context.Background()

	for _, o := range []tracker.Observation{
		{FileID: "x1", ChannelID: 1, Size: 5, Kind: tracker.KindDocument, FileName: "dup.txt"},
		{FileID: "x2", ChannelID: 2, Size: 7, Kind: tracker.KindDocument, FileName: "dup.txt"},
	} {
		if _, err := tr.Ingest(ctx, o); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	rec, err := tr.DeleteByName(ctx, "dup.txt")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if rec.FileID != "x1" {
		t.Fatalf("removed %s, want first inserted x1", rec.FileID)
	}

	if _, ok := tr.Get("x2"); !ok {
		t.Fatalf("second duplicate name must remain")
	}

	assertConsistent(t, tr)
}

func TestZeroCountChannelIsKept(t *testing.T) {
	tr := tracker.New()
	ctx := context.Background()

	_, _ = tr.Ingest(ctx, obs("f1", 3, "Three", 10))
	_, _ = tr.DeleteByID(ctx, "f1")

	st, ok := tr.Channel(3)
	if !ok {
		t.Fatalf("emptied channel was pruned")
	}

	if st.Count != 0 || st.Size != 0 {
		t.Fatalf("stats = %+v, want zero", st)
	}
}
