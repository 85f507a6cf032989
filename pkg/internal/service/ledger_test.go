package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/filetally/pkg/internal/probe"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/internal/storage/kv"
	"github.com/yeisme/filetally/pkg/internal/tracker"
)

func newLedgerService(t *testing.T) *service.TrackerService {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewMemoryKV: %v", err)
	}

	gone := tracker.ProberFunc(func(context.Context, string) (bool, error) { return false, nil })

	return service.NewTrackerService(
		service.WithProber(gone),
		service.WithConfirmer(probe.NewKVConfirmer(store, 3, time.Hour)),
	)
}

func pendingIDs(t *testing.T, svc *service.TrackerService) map[string]int {
	t.Helper()

	pending, err := svc.PendingRemovals(context.Background())
	if err != nil {
		t.Fatalf("PendingRemovals: %v", err)
	}

	out := make(map[string]int, len(pending))
	for _, p := range pending {
		out[p.FileID] = p.Votes
	}

	return out
}

func TestExplicitDeleteClearsGoneVotes(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := svc.Observe(ctx, docMessage(1, "A", id, 5)); err != nil {
			t.Fatalf("Observe %s: %v", id, err)
		}
	}

	if _, err := svc.Reconcile(ctx, service.TriggerManual); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if got := pendingIDs(t, svc); len(got) != 3 || got["a"] != 1 {
		t.Fatalf("pending after one sweep = %v", got)
	}

	if _, err := svc.DeleteByID(ctx, "a"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	// 显示名为 "{file_id}.pdf".
	if _, err := svc.DeleteByName(ctx, "b.pdf"); err != nil {
		t.Fatalf("DeleteByName: %v", err)
	}

	got := pendingIDs(t, svc)
	if len(got) != 1 || got["c"] != 1 {
		t.Fatalf("pending after deletes = %v", got)
	}
}

func TestClearPendingRemovals(t *testing.T) {
	svc := newLedgerService(t)
	ctx := context.Background()

	_, _ = svc.Observe(ctx, docMessage(1, "A", "a", 5))

	for range 2 {
		if _, err := svc.Reconcile(ctx, service.TriggerManual); err != nil {
			t.Fatalf("reconcile: %v", err)
		}
	}

	if got := pendingIDs(t, svc); got["a"] != 2 {
		t.Fatalf("pending = %v", got)
	}

	if err := svc.ClearPendingRemovals(ctx); err != nil {
		t.Fatalf("ClearPendingRemovals: %v", err)
	}

	if got := pendingIDs(t, svc); len(got) != 0 {
		t.Fatalf("pending after clear = %v", got)
	}

	// 计数从零开始，第三次对账仍不足以删除.
	if res, err := svc.Reconcile(ctx, service.TriggerManual); err != nil || res.Removed != 0 || res.Pending != 1 {
		t.Fatalf("reconcile after clear = %+v, %v", res, err)
	}

	if _, ok := svc.Get("a"); !ok {
		t.Fatal("record removed despite cleared ledger")
	}
}

func TestClearPendingRemovalsWithoutLedger(t *testing.T) {
	if err := service.NewTrackerService().ClearPendingRemovals(context.Background()); err != nil {
		t.Fatalf("ClearPendingRemovals: %v", err)
	}
}
