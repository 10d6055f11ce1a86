package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/infra"
)

// Guard drives a single order to CANCELED without breaking its state machine.
type Guard struct {
	client  domain.ExecutionClient
	clock   domain.TimeClient
	retry   infra.RetryPolicy
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewGuard creates a Guard that submits reports through client and stamps
// them with clock.
func NewGuard(client domain.ExecutionClient, clock domain.TimeClient, retry infra.RetryPolicy) *Guard {
	return &Guard{
		client:  client,
		clock:   clock,
		retry:   retry,
		metrics: infra.GlobalMetrics,
		logger:  slog.Default().With("module", "guard"),
	}
}

// SetMetrics redirects write latency and retries to m.
func (g *Guard) SetMetrics(m *infra.Metrics) {
	g.metrics = m
	g.retry.Metrics = m
}

// Result describes what Cancel did to one order.
type Result struct {
	Outcome domain.Outcome
	Writes  int // reports acknowledged by the execution service
}

// Cancel submits the reports needed to move order to CANCELED:
//   - no history: a PENDING_NEW seed report, then the cancel report;
//   - terminal history: nothing;
//   - otherwise: one CANCELED report following the latest report.
//
// message is carried as the cancel report's text.
func (g *Guard) Cancel(ctx context.Context, order domain.Order, message string) (Result, error) {
	res := Result{Outcome: domain.OutcomeFailed}
	reports := order.Reports

	if len(reports) == 0 {
		now, err := g.now(ctx)
		if err != nil {
			return res, err
		}
		seed := domain.BuildInitialReport(order.ID, now)
		w, err := g.submit(ctx, order.ID, seed)
		if err != nil {
			return res, fmt.Errorf("seed order %d: %w", order.ID, err)
		}
		if w.applied {
			res.Writes++
		}
		reports = []domain.ExecutionReport{w.latest}
	}

	latest := reports[len(reports)-1]
	if latest.Status.IsTerminal() {
		g.logger.Debug("Order already terminal",
			slog.Uint64("order_id", uint64(order.ID)), slog.String("status", string(latest.Status)))
		res.Outcome = domain.OutcomeAlreadyTerminal
		return res, nil
	}
	if !latest.Status.CanTransition(domain.OrderStatusCanceled) {
		return res, fmt.Errorf("order %d in status %q: %w", order.ID, latest.Status, domain.ErrInvalidTransition)
	}

	now, err := g.now(ctx)
	if err != nil {
		return res, err
	}
	// Reports must not go backwards in time even if the venue clock lags the seed.
	if now.Before(latest.Timestamp) {
		now = latest.Timestamp
	}
	cancel := domain.BuildUpdatedReport(latest, domain.OrderStatusCanceled, now)
	cancel.Text = message
	w, err := g.submit(ctx, order.ID, cancel)
	if err != nil {
		return res, fmt.Errorf("cancel order %d: %w", order.ID, err)
	}
	if !w.applied {
		g.logger.Info("Order went terminal during cancel",
			slog.Uint64("order_id", uint64(order.ID)), slog.String("status", string(w.latest.Status)))
		res.Outcome = domain.OutcomeAlreadyTerminal
		return res, nil
	}
	res.Writes++
	res.Outcome = domain.OutcomeCanceled

	g.logger.Info("Order canceled",
		slog.Uint64("order_id", uint64(order.ID)),
		slog.String("account", order.Fields.Account.Name),
		slog.Int("writes", res.Writes))
	return res, nil
}

func (g *Guard) now(ctx context.Context) (time.Time, error) {
	var now time.Time
	err := g.retry.Do(ctx, "get_time", func(ctx context.Context) error {
		var err error
		now, err = g.clock.Time(ctx)
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("get time: %w", err)
	}
	return now, nil
}

// write is the venue's history after a submission.
type write struct {
	applied bool // the submitted report is in the history
	latest  domain.ExecutionReport
}

// submit sends report and retries transient failures. When a retry is
// rejected after a transient failure the order is reloaded: a history holding
// the report counts as applied, and a terminal history is returned without
// error.
func (g *Guard) submit(ctx context.Context, id domain.OrderID, report domain.ExecutionReport) (write, error) {
	uncertain := false
	err := g.retry.Do(ctx, "update", func(ctx context.Context) error {
		start := time.Now()
		if err := g.client.Update(ctx, id, report); err != nil {
			if domain.IsRetriable(err) || ctx.Err() != nil {
				uncertain = true
			}
			return err
		}
		g.metrics.RecordWrite(time.Since(start))
		return nil
	})
	if err == nil {
		return write{applied: true, latest: report}, nil
	}
	if !uncertain || domain.IsRetriable(err) || ctx.Err() != nil {
		return write{}, err
	}
	return g.reconcile(ctx, id, report, err)
}

func (g *Guard) reconcile(ctx context.Context, id domain.OrderID, sent domain.ExecutionReport, rejected error) (write, error) {
	var order domain.Order
	loadErr := g.retry.Do(ctx, "load_order", func(ctx context.Context) (err error) {
		order, err = g.client.LoadOrder(ctx, id)
		return err
	})
	if loadErr != nil {
		g.logger.Warn("Failed to reload order after rejected retry",
			slog.Uint64("order_id", uint64(id)), slog.Any("error", loadErr))
		return write{}, rejected
	}

	latest, ok := order.LatestReport()
	if !ok {
		return write{}, rejected
	}
	w := write{latest: latest}
	for _, r := range order.Reports {
		if r.Sequence == sent.Sequence && r.Status == sent.Status {
			w.applied = true
			break
		}
	}
	if w.applied {
		g.logger.Info("Earlier attempt was applied",
			slog.Uint64("order_id", uint64(id)), slog.String("status", string(sent.Status)))
		return w, nil
	}
	if latest.Status.IsTerminal() {
		return w, nil
	}
	return write{}, rejected
}
