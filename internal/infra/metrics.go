package infra

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	attempts        atomic.Uint64
	canceled        atomic.Uint64
	alreadyTerminal atomic.Uint64
	failures        atomic.Uint64
	retries         atomic.Uint64
	writes          atomic.Uint64

	// Write latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	inFlight atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordAttempt records the start of a cancellation attempt.
func (m *Metrics) RecordAttempt() {
	m.attempts.Add(1)
	m.inFlight.Add(1)
}

// RecordCanceled records an attempt that submitted a CANCELED report.
func (m *Metrics) RecordCanceled() {
	m.canceled.Add(1)
	m.inFlight.Add(-1)
}

// RecordAlreadyTerminal records an attempt that found nothing to do.
func (m *Metrics) RecordAlreadyTerminal() {
	m.alreadyTerminal.Add(1)
	m.inFlight.Add(-1)
}

// RecordFailure records an attempt that ended with an error.
func (m *Metrics) RecordFailure() {
	m.failures.Add(1)
	m.inFlight.Add(-1)
}

// RecordRetry records a retried remote call.
func (m *Metrics) RecordRetry() {
	m.retries.Add(1)
}

// RecordWrite records a report submitted to the execution service.
func (m *Metrics) RecordWrite(latency time.Duration) {
	m.writes.Add(1)
	m.latencySumNs.Add(int64(latency))
	m.latencyCount.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Attempts        uint64
	Canceled        uint64
	AlreadyTerminal uint64
	Failures        uint64
	Retries         uint64
	Writes          uint64
	AvgWriteNs      int64
	InFlight        int32
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Attempts:        m.attempts.Load(),
		Canceled:        m.canceled.Load(),
		AlreadyTerminal: m.alreadyTerminal.Load(),
		Failures:        m.failures.Load(),
		Retries:         m.retries.Load(),
		Writes:          m.writes.Load(),
		AvgWriteNs:      avgLatency,
		InFlight:        m.inFlight.Load(),
		Timestamp:       time.Now(),
	}
}

// LogValue lets a snapshot be logged as a group.
func (s MetricsSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("attempts", s.Attempts),
		slog.Uint64("canceled", s.Canceled),
		slog.Uint64("already_terminal", s.AlreadyTerminal),
		slog.Uint64("failures", s.Failures),
		slog.Uint64("retries", s.Retries),
		slog.Uint64("writes", s.Writes),
		slog.Duration("avg_write", time.Duration(s.AvgWriteNs)),
	)
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.attempts.Store(0)
	m.canceled.Store(0)
	m.alreadyTerminal.Store(0)
	m.failures.Store(0)
	m.retries.Store(0)
	m.writes.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.inFlight.Store(0)
}
