package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/infra/storage"
)

// ErrRunNotFound is returned when the journal holds no run with the requested id.
var ErrRunNotFound = errors.New("run not found")

// AuditQuery selects what to read back from the journal. At most one field
// may be set.
type AuditQuery struct {
	Runs  int    // most recent run summaries
	Run   string // one run and its attempts
	Order string // every attempt on one order
}

// IsSet reports whether any read-back was requested.
func (q AuditQuery) IsSet() bool {
	return q.Runs > 0 || q.Run != "" || q.Order != ""
}

func (q AuditQuery) validate() error {
	n := 0
	if q.Runs > 0 {
		n++
	}
	if q.Run != "" {
		n++
	}
	if q.Order != "" {
		n++
	}
	if n > 1 {
		return errors.New("only one of -runs, -run or -history may be given")
	}
	return nil
}

// Audit writes the journal entries selected by q to w.
func Audit(ctx context.Context, journal *storage.Journal, q AuditQuery, w io.Writer) error {
	if err := q.validate(); err != nil {
		return err
	}

	switch {
	case q.Runs > 0:
		runs, err := journal.RecentRuns(ctx, q.Runs)
		if err != nil {
			return fmt.Errorf("read runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
		}
		for _, run := range runs {
			writeRun(w, run)
		}

	case q.Run != "":
		run, err := journal.GetRun(ctx, q.Run)
		if err != nil {
			return fmt.Errorf("read run: %w", err)
		}
		if run == nil {
			return fmt.Errorf("%s: %w", q.Run, ErrRunNotFound)
		}
		recs, err := journal.ListRun(ctx, q.Run)
		if err != nil {
			return fmt.Errorf("read attempts: %w", err)
		}
		writeRun(w, *run)
		for _, rec := range recs {
			writeAttempt(w, rec)
		}

	case q.Order != "":
		id, err := strconv.ParseUint(strings.TrimSpace(q.Order), 10, 64)
		if err != nil {
			return fmt.Errorf("not a valid order id: %q", q.Order)
		}
		recs, err := journal.OrderHistory(ctx, domain.OrderID(id))
		if err != nil {
			return fmt.Errorf("read order history: %w", err)
		}
		if len(recs) == 0 {
			fmt.Fprintf(w, "No attempts recorded for order %d.\n", id)
		}
		for _, rec := range recs {
			writeAttempt(w, rec)
		}
	}
	return nil
}

func writeRun(w io.Writer, run domain.RunRecord) {
	fmt.Fprintf(w, "Run %s %s %s started %s\n",
		run.RunID, run.Scope, run.Target, run.StartedAt.Format(time.DateTime))
	fmt.Fprintf(w, "  attempted %d, canceled %d, already terminal %d, failed %d\n",
		run.Attempted, run.Canceled, run.AlreadyTerminal, run.Failed)
}

func writeAttempt(w io.Writer, rec domain.CancellationRecord) {
	fmt.Fprintf(w, "  %s order %d (%s %s): %s, %d writes",
		rec.AttemptedAt.Format(time.DateTime), rec.OrderID, rec.Account, rec.Security, rec.Outcome, rec.Writes)
	if rec.Error != "" {
		fmt.Fprintf(w, ": %s", rec.Error)
	}
	fmt.Fprintln(w)
}
