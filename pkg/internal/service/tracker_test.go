package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/filetally/pkg/internal/audit"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/internal/tracker"
)

type recordingSink struct {
	mu       sync.Mutex
	recorded int
	removed  int
	runs     []audit.Run
}

func (r *recordingSink) FileRecorded(context.Context, tracker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recorded++

	return nil
}

func (r *recordingSink) FileRemoved(context.Context, tracker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removed++

	return nil
}

func (r *recordingSink) ReconcileCompleted(_ context.Context, run audit.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, run)

	return nil
}

func docMessage(chat int64, title, id string, size int64) tracker.Message {
	return tracker.Message{
		Chat:     tracker.Chat{ID: chat, Title: title},
		Document: &tracker.Media{FileID: id, FileName: id + ".pdf", FileSize: size},
	}
}

func TestObserveAndReport(t *testing.T) {
	sink := &recordingSink{}
	svc := service.NewTrackerService(service.WithSink(sink))
	ctx := context.Background()

	if _, err := svc.Observe(ctx, docMessage(1, "Ops", "a", 2097152)); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	if _, err := svc.Observe(ctx, docMessage(1, "Ops", "a", 2097152)); !errors.Is(err, tracker.ErrDuplicate) {
		t.Fatalf("duplicate = %v", err)
	}

	if _, err := svc.Observe(ctx, tracker.Message{Chat: tracker.Chat{ID: 1}, Text: "hi"}); !errors.Is(err, tracker.ErrNoMedia) {
		t.Fatalf("text message = %v", err)
	}

	out, err := svc.Report(ctx, tracker.ScopeChannel)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if !strings.Contains(out, "📁 *Ops*") || !strings.Contains(out, "0 GB, 2 MB, 0 KB") {
		t.Fatalf("report = %q", out)
	}

	if sink.recorded != 1 {
		t.Fatalf("sink recorded = %d, want 1", sink.recorded)
	}
}

func TestDeletes(t *testing.T) {
	sink := &recordingSink{}
	svc := service.NewTrackerService(service.WithSink(sink))
	ctx := context.Background()

	_, _ = svc.Observe(ctx, docMessage(1, "A", "x", 10))
	_, _ = svc.Observe(ctx, docMessage(1, "A", "y", 20))

	if _, err := svc.DeleteByID(ctx, "x"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	if _, err := svc.DeleteByID(ctx, "x"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("second DeleteByID = %v", err)
	}

	rec, err := svc.DeleteByName(ctx, "y.pdf")
	if err != nil || rec.FileID != "y" {
		t.Fatalf("DeleteByName = (%+v, %v)", rec, err)
	}

	if sink.removed != 2 {
		t.Fatalf("sink removed = %d", sink.removed)
	}

	snap := svc.Snapshot()
	if len(snap.Channels) != 1 || snap.Channels[0].Count != 0 || snap.Channels[0].Size != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestReconcileUnavailableWithoutProber(t *testing.T) {
	svc := service.NewTrackerService()

	if _, err := svc.Reconcile(context.Background(), service.TriggerManual); !errors.Is(err, service.ErrReconcileUnavailable) {
		t.Fatalf("err = %v", err)
	}

	if svc.ReconcileAvailable() {
		t.Fatalf("ReconcileAvailable should be false")
	}
}

func TestReconcileRecordsRun(t *testing.T) {
	sink := &recordingSink{}
	gone := tracker.ProberFunc(func(_ context.Context, id string) (bool, error) { return id != "x", nil })
	svc := service.NewTrackerService(service.WithSink(sink), service.WithProber(gone))
	ctx := context.Background()

	_, _ = svc.Observe(ctx, docMessage(1, "A", "x", 10))
	_, _ = svc.Observe(ctx, docMessage(1, "A", "y", 20))

	res, err := svc.Reconcile(ctx, service.TriggerManual)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if res.Removed != 1 || res.RemovedBytes != 10 {
		t.Fatalf("result = %+v", res)
	}

	run, ok := svc.LastReconcile()
	if !ok || run.Trigger != service.TriggerManual || run.Result.Removed != 1 {
		t.Fatalf("last run = %+v, %v", run, ok)
	}

	if len(sink.runs) != 1 {
		t.Fatalf("sink runs = %d", len(sink.runs))
	}
}

func TestReconcileRejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	var once sync.Once

	slow := tracker.ProberFunc(func(context.Context, string) (bool, error) {
		once.Do(func() { close(started) })
		<-release

		return true, nil
	})

	svc := service.NewTrackerService(service.WithProber(slow))
	_, _ = svc.Observe(context.Background(), docMessage(1, "A", "x", 10))

	done := make(chan error, 1)

	go func() {
		_, err := svc.Reconcile(context.Background(), service.TriggerScheduled)
		done <- err
	}()

	<-started

	if _, err := svc.Reconcile(context.Background(), service.TriggerManual); !errors.Is(err, service.ErrReconcileRunning) {
		t.Fatalf("overlapping reconcile = %v", err)
	}

	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first reconcile: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first reconcile did not finish")
	}
}

func TestPanicBecomesInternalError(t *testing.T) {
	boom := tracker.ProberFunc(func(context.Context, string) (bool, error) { return true, nil })
	sink := panickingSink{}
	svc := service.NewTrackerService(service.WithSink(sink), service.WithProber(boom))

	_, err := svc.Reconcile(context.Background(), service.TriggerManual)
	if !errors.Is(err, service.ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}

	// 服务在 panic 后仍可用.
	if _, err := svc.Observe(context.Background(), docMessage(1, "A", "z", 1)); err != nil {
		t.Fatalf("Observe after panic: %v", err)
	}
}

func TestReconcileSinkPanicBecomesInternalError(t *testing.T) {
	gone := tracker.ProberFunc(func(context.Context, string) (bool, error) { return false, nil })
	svc := service.NewTrackerService(service.WithSink(removePanickingSink{}), service.WithProber(gone))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := svc.Observe(ctx, docMessage(1, "A", id, 10)); err != nil {
			t.Fatalf("Observe %s: %v", id, err)
		}
	}

	res, err := svc.Reconcile(ctx, service.TriggerManual)
	if !errors.Is(err, service.ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}

	if res.Removed != 3 || res.Panicked != 3 {
		t.Fatalf("result = %+v", res)
	}

	if totals := svc.Snapshot().Totals; totals.Count != 0 || totals.Size != 0 {
		t.Fatalf("totals = %+v", totals)
	}

	run, ok := svc.LastReconcile()
	if !ok || run.Error == "" {
		t.Fatalf("last run = %+v", run)
	}

	if _, err := svc.Observe(ctx, docMessage(1, "A", "d", 1)); err != nil {
		t.Fatalf("Observe after panic: %v", err)
	}

	if _, err := svc.DeleteByID(ctx, "d"); !errors.Is(err, service.ErrInternal) {
		t.Fatalf("DeleteByID err = %v, want ErrInternal", err)
	}
}

// removePanickingSink 在删除通知时 panic.
type removePanickingSink struct{}

func (removePanickingSink) FileRecorded(context.Context, tracker.Event) error { return nil }
func (removePanickingSink) FileRemoved(context.Context, tracker.Event) error {
	panic("sink exploded on remove")
}
func (removePanickingSink) ReconcileCompleted(context.Context, audit.Run) error { return nil }

type panickingSink struct{}

func (panickingSink) FileRecorded(context.Context, tracker.Event) error { return nil }
func (panickingSink) FileRemoved(context.Context, tracker.Event) error  { return nil }
func (panickingSink) ReconcileCompleted(context.Context, audit.Run) error {
	panic("sink exploded")
}

func TestRecordsFilter(t *testing.T) {
	svc := service.NewTrackerService()
	ctx := context.Background()

	_, _ = svc.Observe(ctx, docMessage(1, "A", "a1", 1))
	_, _ = svc.Observe(ctx, docMessage(2, "B", "b1", 1))
	_, _ = svc.Observe(ctx, docMessage(1, "A", "a2", 1))

	one := int64(1)
	got := svc.Records(&one)

	if len(got) != 2 || got[0].FileID != "a1" || got[1].FileID != "a2" {
		t.Fatalf("records = %+v", got)
	}

	if len(svc.Records(nil)) != 3 {
		t.Fatalf("all records = %d", len(svc.Records(nil)))
	}
}
