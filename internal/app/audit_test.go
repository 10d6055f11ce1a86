package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/infra/storage"
)

func seededJournal(t *testing.T) *storage.Journal {
	t.Helper()
	j, err := storage.OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	ctx := context.Background()
	started := time.Date(2020, 3, 2, 16, 0, 0, 0, time.UTC)
	for i, runID := range []string{"run-a", "run-b"} {
		run := domain.RunRecord{
			RunID:     runID,
			Scope:     "ACCOUNT",
			Target:    "ACME",
			Attempted: 1,
			Canceled:  1,
			StartedAt: started.Add(time.Duration(i) * time.Hour),
		}
		if err := j.FinishRun(ctx, run); err != nil {
			t.Fatalf("FinishRun failed: %v", err)
		}
	}
	recs := []domain.CancellationRecord{
		{RunID: "run-a", Scope: "ACCOUNT", Account: "ACME", OrderID: 7, Security: "RY.XTSE", Outcome: domain.OutcomeCanceled, Writes: 2, AttemptedAt: started},
		{RunID: "run-b", Scope: "ACCOUNT", Account: "ACME", OrderID: 7, Security: "RY.XTSE", Outcome: domain.OutcomeAlreadyTerminal, AttemptedAt: started.Add(time.Hour)},
		{RunID: "run-b", Scope: "ACCOUNT", Account: "ACME", OrderID: 8, Security: "RY.XTSE", Outcome: domain.OutcomeFailed, Error: "conflict", AttemptedAt: started.Add(time.Hour)},
	}
	for _, rec := range recs {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	return j
}

func TestAudit_RecentRuns(t *testing.T) {
	j := seededJournal(t)

	var out bytes.Buffer
	if err := Audit(context.Background(), j, AuditQuery{Runs: 1}, &out); err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if !strings.Contains(out.String(), "run-b") || strings.Contains(out.String(), "run-a") {
		t.Errorf("output = %q, want only the newest run", out.String())
	}
}

func TestAudit_Run(t *testing.T) {
	j := seededJournal(t)

	var out bytes.Buffer
	if err := Audit(context.Background(), j, AuditQuery{Run: "run-b"}, &out); err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	s := out.String()
	for _, want := range []string{"Run run-b", "order 7", "ALREADY_TERMINAL", "order 8", "FAILED", "conflict"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestAudit_UnknownRun(t *testing.T) {
	j := seededJournal(t)

	err := Audit(context.Background(), j, AuditQuery{Run: "run-z"}, &bytes.Buffer{})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("error = %v, want ErrRunNotFound", err)
	}
}

func TestAudit_OrderHistory(t *testing.T) {
	j := seededJournal(t)

	var out bytes.Buffer
	if err := Audit(context.Background(), j, AuditQuery{Order: "7"}, &out); err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 attempts, got %q", out.String())
	}
	if !strings.Contains(lines[0], "CANCELED") || !strings.Contains(lines[1], "ALREADY_TERMINAL") {
		t.Errorf("attempts out of order: %q", lines)
	}

	if err := Audit(context.Background(), j, AuditQuery{Order: "x7"}, &out); err == nil {
		t.Error("Expected error for a bad order id")
	}
}

func TestAudit_OneQueryAtATime(t *testing.T) {
	j := seededJournal(t)

	err := Audit(context.Background(), j, AuditQuery{Runs: 3, Order: "7"}, &bytes.Buffer{})
	if err == nil {
		t.Error("Expected error for two queries")
	}
}

func TestBootstrap_OpenJournal(t *testing.T) {
	b := newTestBootstrap(t, nil)
	if err := b.OpenJournal(writeConfig(t, filepath.Join(t.TempDir(), "journal.db"))); err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	if b.Journal == nil || b.Clients != nil {
		t.Error("only the journal should be open")
	}

	b = newTestBootstrap(t, nil)
	if err := b.OpenJournal(writeConfig(t, "")); !errors.Is(err, ErrNoJournal) {
		t.Errorf("error = %v, want ErrNoJournal", err)
	}
}
