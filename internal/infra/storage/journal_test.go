package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cancel_sweep/internal/domain"
)

func setupTestDB(t *testing.T) *Journal {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}

func record(runID string, id domain.OrderID, outcome domain.Outcome) domain.CancellationRecord {
	return domain.CancellationRecord{
		RunID:       runID,
		Scope:       "REGION",
		Account:     "ACME",
		OrderID:     id,
		Security:    "RY.XTSE",
		Outcome:     outcome,
		Writes:      1,
		Message:     "Session terminated.",
		AttemptedAt: time.Now(),
	}
}

func TestRecordAndListRun(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	// 1. Create
	for _, rec := range []domain.CancellationRecord{
		record("run-1", 3, domain.OutcomeCanceled),
		record("run-1", 1, domain.OutcomeAlreadyTerminal),
		record("run-2", 2, domain.OutcomeCanceled),
	} {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// 2. List
	recs, err := j.ListRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListRun failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].OrderID != 1 || recs[1].OrderID != 3 {
		t.Errorf("expected order ids [1 3], got [%d %d]", recs[0].OrderID, recs[1].OrderID)
	}
	if recs[0].Outcome != domain.OutcomeAlreadyTerminal {
		t.Errorf("expected ALREADY_TERMINAL, got %s", recs[0].Outcome)
	}
}

func TestRecordKeepsErrors(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	rec := record("run-1", 5, domain.OutcomeFailed)
	rec.Error = "update: remote status 409: conflict"
	rec.Writes = 0
	if err := j.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	recs, _ := j.ListRun(ctx, "run-1")
	if len(recs) != 1 || recs[0].Error != rec.Error {
		t.Errorf("expected stored error %q, got %+v", rec.Error, recs)
	}
}

func TestOrderHistory(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	j.Record(ctx, record("run-1", 9, domain.OutcomeCanceled))
	j.Record(ctx, record("run-2", 9, domain.OutcomeAlreadyTerminal))
	j.Record(ctx, record("run-2", 10, domain.OutcomeCanceled))

	history, err := j.OrderHistory(ctx, 9)
	if err != nil {
		t.Fatalf("OrderHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(history))
	}
	if history[0].RunID != "run-1" || history[1].RunID != "run-2" {
		t.Errorf("expected runs in order, got %s, %s", history[0].RunID, history[1].RunID)
	}
}

func TestFinishAndGetRun(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	run := domain.RunRecord{RunID: "run-1", Scope: "ACCOUNT", Target: "ACME", Attempted: 2, StartedAt: started}
	if err := j.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	// Update
	run.Canceled = 2
	run.FinishedAt = time.Now()
	if err := j.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun update failed: %v", err)
	}

	fetched, err := j.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched run is nil")
	}
	if fetched.Canceled != 2 || fetched.Target != "ACME" {
		t.Errorf("unexpected run: %+v", fetched)
	}

	missing, err := j.GetRun(ctx, "run-404")
	if err != nil {
		t.Fatalf("GetRun for missing run failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing run")
	}
}

func TestRecentRuns(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		j.FinishRun(ctx, domain.RunRecord{RunID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	runs, err := j.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" || runs[1].RunID != "mid" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestConcurrentRecord(t *testing.T) {
	j := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id domain.OrderID) {
			defer wg.Done()
			if err := j.Record(ctx, record("run-c", id, domain.OutcomeCanceled)); err != nil {
				t.Errorf("Record %d failed: %v", id, err)
			}
		}(domain.OrderID(i))
	}
	wg.Wait()

	recs, err := j.ListRun(ctx, "run-c")
	if err != nil {
		t.Fatalf("ListRun failed: %v", err)
	}
	if len(recs) != 20 {
		t.Errorf("expected 20 records, got %d", len(recs))
	}
}
