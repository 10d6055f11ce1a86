package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"cancel_sweep/internal/domain"
)

// OrderFailure is a cancellation attempt that ended with an error.
type OrderFailure struct {
	OrderID domain.OrderID
	Account string
	Err     error
}

// AccountFailure is an account whose orders could not be enumerated.
type AccountFailure struct {
	Account string
	Err     error
}

// Report tallies one request. A batch is a best-effort sweep, so failures
// are collected rather than returned.
type Report struct {
	RunID      string
	Scope      Scope
	StartedAt  time.Time
	FinishedAt time.Time

	Attempted       int
	Canceled        int
	AlreadyTerminal int
	Failed          int
	Writes          int

	Failures        []OrderFailure
	AccountFailures []AccountFailure

	mu sync.Mutex
}

func newReport(runID string, scope Scope) *Report {
	return &Report{RunID: runID, Scope: scope, StartedAt: time.Now()}
}

func (r *Report) recordOrder(order domain.Order, outcome domain.Outcome, writes int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Attempted++
	r.Writes += writes
	switch outcome {
	case domain.OutcomeCanceled:
		r.Canceled++
	case domain.OutcomeAlreadyTerminal:
		r.AlreadyTerminal++
	default:
		r.Failed++
		r.Failures = append(r.Failures, OrderFailure{
			OrderID: order.ID,
			Account: order.Fields.Account.Name,
			Err:     err,
		})
	}
}

func (r *Report) recordAccountFailure(account domain.Account, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AccountFailures = append(r.AccountFailures, AccountFailure{Account: account.Name, Err: err})
}

func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].OrderID < r.Failures[j].OrderID })
	sort.Slice(r.AccountFailures, func(i, j int) bool {
		return r.AccountFailures[i].Account < r.AccountFailures[j].Account
	})
}

// HasFailures reports whether any order or account failed.
func (r *Report) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed > 0 || len(r.AccountFailures) > 0
}

// LogValue lets a report be logged as a group.
func (r *Report) LogValue() slog.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slog.GroupValue(
		slog.String("run_id", r.RunID),
		slog.String("scope", r.Scope.String()),
		slog.Int("attempted", r.Attempted),
		slog.Int("canceled", r.Canceled),
		slog.Int("already_terminal", r.AlreadyTerminal),
		slog.Int("failed", r.Failed),
		slog.Int("account_failures", len(r.AccountFailures)),
		slog.Int("writes", r.Writes),
	)
}

func (r *Report) runRecord(target string) domain.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RunRecord{
		RunID:           r.RunID,
		Scope:           r.Scope.String(),
		Target:          target,
		Attempted:       r.Attempted,
		Canceled:        r.Canceled,
		AlreadyTerminal: r.AlreadyTerminal,
		Failed:          r.Failed,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
}
