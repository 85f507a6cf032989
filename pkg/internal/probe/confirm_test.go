package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/filetally/pkg/internal/probe"
	"github.com/yeisme/filetally/pkg/internal/storage/kv"
	"github.com/yeisme/filetally/pkg/internal/tracker"
)

func newStore(t *testing.T) kv.KVStore {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewMemoryKV: %v", err)
	}

	return store
}

func TestKVConfirmerSingleVote(t *testing.T) {
	c := probe.NewKVConfirmer(newStore(t), 0, time.Hour)

	ok, err := c.ConfirmGone(context.Background(), "a")
	if err != nil || !ok {
		t.Fatalf("ConfirmGone = (%v, %v), want immediate confirmation", ok, err)
	}

	if c.Required() != 1 {
		t.Fatalf("Required = %d", c.Required())
	}
}

func TestKVConfirmerNeedsConsecutiveVotes(t *testing.T) {
	ctx := context.Background()
	c := probe.NewKVConfirmer(newStore(t), 3, time.Hour)

	for i := 1; i < 3; i++ {
		ok, err := c.ConfirmGone(ctx, "a")
		if err != nil || ok {
			t.Fatalf("vote %d: (%v, %v), want pending", i, ok, err)
		}
	}

	pending, err := c.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}

	if len(pending) != 1 || pending[0].FileID != "a" || pending[0].Votes != 2 {
		t.Fatalf("pending = %+v", pending)
	}

	ok, err := c.ConfirmGone(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("third vote: (%v, %v), want confirmed", ok, err)
	}

	if pending, _ := c.Pending(ctx); len(pending) != 0 {
		t.Fatalf("ledger not cleared after confirmation: %+v", pending)
	}
}

func TestKVConfirmerReset(t *testing.T) {
	ctx := context.Background()
	c := probe.NewKVConfirmer(newStore(t), 2, time.Hour)

	_, _ = c.ConfirmGone(ctx, "a")

	if err := c.Reset(ctx, "a"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if ok, _ := c.ConfirmGone(ctx, "a"); ok {
		t.Fatalf("vote after reset should start from zero")
	}
}

func TestKVConfirmerDrivesReconcile(t *testing.T) {
	ctx := context.Background()
	tr := tracker.New()

	if _, err := tr.Ingest(ctx, tracker.Observation{FileID: "x", ChannelID: 1, ChannelName: "C", Size: 5, Kind: tracker.KindAudio}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	gone := tracker.ProberFunc(func(context.Context, string) (bool, error) { return false, nil })
	opts := tracker.DefaultReconcileOptions()
	opts.Confirmer = probe.NewKVConfirmer(newStore(t), 2, time.Hour)

	res, _ := tr.Reconcile(ctx, gone, opts)
	if res.Pending != 1 || tr.Len() != 1 {
		t.Fatalf("first sweep = %+v, len %d", res, tr.Len())
	}

	res, _ = tr.Reconcile(ctx, gone, opts)
	if res.Removed != 1 || tr.Len() != 0 {
		t.Fatalf("second sweep = %+v, len %d", res, tr.Len())
	}
}
