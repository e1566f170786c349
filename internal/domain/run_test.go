package domain

import (
	"testing"
	"time"
)

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun(Workflow{})
	if run.Status != RunStatusPending || run.IsFinished() {
		t.Fatalf("new run should be pending, got %s", run.Status)
	}
	if run.Duration() != 0 {
		t.Errorf("pending run has no duration, got %v", run.Duration())
	}

	run.MarkRunning()
	if run.Status != RunStatusRunning || run.StartedAt == nil {
		t.Fatalf("unexpected running state: %+v", run)
	}
	if run.Duration() != 0 {
		t.Errorf("unfinished run has no duration, got %v", run.Duration())
	}

	run.MarkFailed("NODE_INVOCATION", "boom")
	if !run.IsFinished() || run.ErrorKind != "NODE_INVOCATION" || run.Error != "boom" {
		t.Fatalf("unexpected failed state: %+v", run)
	}
}

func TestRun_Duration(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)

	run := &Run{StartedAt: &started, FinishedAt: &finished}
	if got := run.Duration(); got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", got)
	}
}
