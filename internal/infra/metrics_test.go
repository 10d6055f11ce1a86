package infra

import (
	"testing"
	"time"
)

func TestMetrics_RecordWrite(t *testing.T) {
	m := &Metrics{}

	m.RecordWrite(1000)
	m.RecordWrite(2000)
	m.RecordWrite(3000)

	snap := m.Snapshot()

	if snap.Writes != 3 {
		t.Errorf("Expected 3 writes, got %d", snap.Writes)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgWriteNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgWriteNs)
	}
}

func TestMetrics_Outcomes(t *testing.T) {
	m := &Metrics{}

	m.RecordAttempt()
	m.RecordAttempt()
	m.RecordAttempt()

	snap := m.Snapshot()
	if snap.InFlight != 3 {
		t.Errorf("Expected 3 in flight, got %d", snap.InFlight)
	}

	m.RecordCanceled()
	m.RecordAlreadyTerminal()
	m.RecordFailure()

	snap = m.Snapshot()
	if snap.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", snap.Attempts)
	}
	if snap.Canceled != 1 || snap.AlreadyTerminal != 1 || snap.Failures != 1 {
		t.Errorf("Unexpected outcome counts: %+v", snap)
	}
	if snap.InFlight != 0 {
		t.Errorf("Expected 0 in flight, got %d", snap.InFlight)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordAttempt()
	m.RecordFailure()
	m.RecordRetry()
	m.RecordWrite(time.Millisecond)

	m.Reset()
	snap := m.Snapshot()

	if snap.Attempts != 0 {
		t.Error("Expected 0 attempts after reset")
	}
	if snap.Failures != 0 {
		t.Error("Expected 0 failures after reset")
	}
	if snap.Retries != 0 || snap.Writes != 0 {
		t.Error("Expected 0 retries and writes after reset")
	}
}
