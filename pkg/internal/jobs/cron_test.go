package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/filetally/pkg/configs"
	"github.com/yeisme/filetally/pkg/internal/jobs"
	"github.com/yeisme/filetally/pkg/internal/service"
	"github.com/yeisme/filetally/pkg/internal/tracker"
	"github.com/yeisme/filetally/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func reconcileConfig() configs.ReconcileConfig {
	return configs.ReconcileConfig{Enabled: true, Cron: "0 0 1 1 *", Concurrency: 2, Confirmations: 1}
}

func TestRegisterSkipsWithoutProbe(t *testing.T) {
	s := newScheduler(t)
	svc := service.NewTrackerService()

	if err := jobs.RegisterCronJobs(context.Background(), s, svc, reconcileConfig()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := len(s.GetJobInfos()); got != 0 {
		t.Fatalf("expected no jobs, got %d", got)
	}
}

func TestRegisterSkipsWhenDisabled(t *testing.T) {
	s := newScheduler(t)
	svc := service.NewTrackerService(service.WithProber(tracker.ProberFunc(func(context.Context, string) (bool, error) {
		return true, nil
	})))

	cfg := reconcileConfig()
	cfg.Enabled = false

	if err := jobs.RegisterCronJobs(context.Background(), s, svc, cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := len(s.GetJobInfos()); got != 0 {
		t.Fatalf("expected no jobs, got %d", got)
	}
}

func TestScheduledSweepRemovesGoneFiles(t *testing.T) {
	s := newScheduler(t)
	svc := service.NewTrackerService(service.WithProber(tracker.ProberFunc(func(_ context.Context, id string) (bool, error) {
		return id != "gone", nil
	})))

	ctx := context.Background()

	for _, id := range []string{"kept", "gone"} {
		msg := tracker.Message{
			Chat:     tracker.Chat{ID: 1, Title: "ops"},
			Document: &tracker.Media{FileID: id, FileSize: 10},
		}
		if _, err := svc.Observe(ctx, msg); err != nil {
			t.Fatalf("observe %s: %v", id, err)
		}
	}

	if err := jobs.RegisterCronJobs(ctx, s, svc, reconcileConfig()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.RunNow(jobs.JobReconcileSweep); err != nil {
		t.Fatalf("run now: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		if run, ok := svc.LastReconcile(); ok {
			if run.Trigger != service.TriggerScheduled || run.Result.Removed != 1 {
				t.Fatalf("unexpected run: %+v", run)
			}

			if _, ok := svc.Get("gone"); ok {
				t.Fatalf("gone file still tracked")
			}

			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("scheduled reconciliation did not run")
}
