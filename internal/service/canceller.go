package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/execution"
	"cancel_sweep/internal/infra"
	"cancel_sweep/internal/region"

	"github.com/google/uuid"
)

// Journal persists cancellation attempts. A nil Journal disables persistence.
type Journal interface {
	Record(ctx context.Context, rec domain.CancellationRecord) error
	FinishRun(ctx context.Context, run domain.RunRecord) error
}

// Options configures a Canceller.
type Options struct {
	ReferenceZone  string
	AccountWorkers int
	OrderWorkers   int
	Retry          infra.RetryPolicy
	Journal        Journal
	Metrics        *infra.Metrics
}

// Canceller fans cancellation requests out to per-order guard runs. It is
// built for one invocation: reference data is loaded once by NewCanceller
// and nothing is cached beyond it.
type Canceller struct {
	clients    domain.ServiceClients
	defs       domain.Definitions
	guard      *execution.Guard
	enumerator *execution.Enumerator
	opts       Options
	logger     *slog.Logger
}

// NewCanceller loads the market, country and time zone databases through
// clients and prepares the guard and enumerator.
func NewCanceller(ctx context.Context, clients domain.ServiceClients, opts Options) (*Canceller, error) {
	if opts.AccountWorkers < 1 {
		opts.AccountWorkers = 1
	}
	if opts.OrderWorkers < 1 {
		opts.OrderWorkers = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = infra.DefaultRetryPolicy()
	}
	opts.Retry.Metrics = opts.Metrics

	defs, err := loadDefinitions(ctx, clients.DefinitionsClient(), opts.Retry)
	if err != nil {
		return nil, err
	}

	enumerator, err := execution.NewEnumerator(clients.ExecutionClient(), defs.TimeZones, opts.ReferenceZone)
	if err != nil {
		return nil, err
	}

	enumerator.SetStepTimeout(opts.Retry.CallTimeout)

	guard := execution.NewGuard(clients.ExecutionClient(), clients.TimeClient(), opts.Retry)
	guard.SetMetrics(opts.Metrics)

	return &Canceller{
		clients:    clients,
		defs:       defs,
		guard:      guard,
		enumerator: enumerator,
		opts:       opts,
		logger:     slog.Default().With("module", "canceller"),
	}, nil
}

func loadDefinitions(ctx context.Context, client domain.DefinitionsClient, retry infra.RetryPolicy) (domain.Definitions, error) {
	var defs domain.Definitions
	err := retry.Do(ctx, "load_market_database", func(ctx context.Context) (err error) {
		defs.Markets, err = client.LoadMarketDatabase(ctx)
		return err
	})
	if err != nil {
		return defs, fmt.Errorf("load market database: %w", err)
	}
	err = retry.Do(ctx, "load_country_database", func(ctx context.Context) (err error) {
		defs.Countries, err = client.LoadCountryDatabase(ctx)
		return err
	})
	if err != nil {
		return defs, fmt.Errorf("load country database: %w", err)
	}
	err = retry.Do(ctx, "load_time_zone_database", func(ctx context.Context) (err error) {
		defs.TimeZones, err = client.LoadTimeZoneDatabase(ctx)
		return err
	})
	if err != nil {
		return defs, fmt.Errorf("load time zone database: %w", err)
	}
	return defs, nil
}

// Definitions returns the reference data loaded for this invocation.
func (c *Canceller) Definitions() domain.Definitions {
	return c.defs
}

// ResolveRegion resolves a region token against the loaded reference data.
func (c *Canceller) ResolveRegion(token string) (domain.Region, error) {
	return region.Resolve(token, c.defs.Countries, c.defs.Markets)
}

// Run dispatches a request to its scope. Resolution and range errors are
// returned before any write; per-order failures are in the report.
func (c *Canceller) Run(ctx context.Context, req Request) (*Report, error) {
	scope, err := req.Scope()
	if err != nil {
		return nil, err
	}

	var report *Report
	switch scope {
	case ScopeOrder:
		report, err = c.CancelByID(ctx, *req.OrderID, req.message())
	case ScopeAccount:
		report, err = c.runAccount(ctx, req)
	case ScopeRegion:
		report, err = c.runRegion(ctx, req)
	}

	if report != nil {
		c.finishRun(ctx, report, req.target())
	}
	return report, err
}

func (c *Canceller) runAccount(ctx context.Context, req Request) (*Report, error) {
	r := domain.GlobalRegion()
	if strings.TrimSpace(req.Region) != "" {
		var err error
		if r, err = c.ResolveRegion(req.Region); err != nil {
			return nil, err
		}
	}

	var account domain.Account
	err := c.opts.Retry.Do(ctx, "find_account", func(ctx context.Context) (err error) {
		account, err = c.clients.AccountDirectory().FindAccount(ctx, strings.TrimSpace(req.Account))
		return err
	})
	if err != nil {
		return nil, err
	}

	begin, end, err := c.defaultRange(ctx, req.Begin, req.End)
	if err != nil {
		return nil, err
	}
	return c.CancelAccount(ctx, account, r, begin, end, req.message())
}

func (c *Canceller) runRegion(ctx context.Context, req Request) (*Report, error) {
	r, err := c.ResolveRegion(req.Region)
	if err != nil {
		return nil, err
	}
	begin, end, err := c.defaultRange(ctx, req.Begin, req.End)
	if err != nil {
		return nil, err
	}
	return c.CancelRegion(ctx, r, begin, end, req.message())
}

// defaultRange fills a missing end with the venue's current time and a
// missing begin with the start of the end's day, in the reference zone.
func (c *Canceller) defaultRange(ctx context.Context, begin, end time.Time) (time.Time, time.Time, error) {
	zone := c.enumerator.Zone()
	if end.IsZero() {
		var now time.Time
		err := c.opts.Retry.Do(ctx, "get_time", func(ctx context.Context) (err error) {
			now, err = c.clients.TimeClient().Time(ctx)
			return err
		})
		if err != nil {
			return begin, end, fmt.Errorf("get time: %w", err)
		}
		end = now.In(zone)
	}
	if begin.IsZero() {
		end = c.enumerator.Anchor(end)
		begin = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, zone)
	}
	return begin, end, nil
}

// CancelByID cancels a single order. domain.ErrOrderNotFound is returned
// without any write when the id is unknown.
func (c *Canceller) CancelByID(ctx context.Context, id domain.OrderID, message string) (*Report, error) {
	var order domain.Order
	err := c.opts.Retry.Do(ctx, "load_order", func(ctx context.Context) (err error) {
		order, err = c.clients.ExecutionClient().LoadOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := newReport(uuid.NewString(), ScopeOrder)
	c.attempt(ctx, report, order, message)
	report.finish()
	return report, nil
}

// CancelAccount cancels the account's orders submitted in [begin, end] whose
// security lies in r. Each order is attempted once; one order's failure does
// not stop the others.
func (c *Canceller) CancelAccount(ctx context.Context, account domain.Account, r domain.Region, begin, end time.Time, message string) (*Report, error) {
	if err := domain.ValidateRange(c.enumerator.Anchor(begin), c.enumerator.Anchor(end)); err != nil {
		return nil, err
	}

	report := newReport(uuid.NewString(), ScopeAccount)
	err := c.cancelAccount(ctx, report, &sync.Map{}, account, r, begin, end, message)
	report.finish()
	return report, err
}

// CancelRegion applies CancelAccount to every account in the directory. An
// account whose orders cannot be enumerated is recorded and skipped.
func (c *Canceller) CancelRegion(ctx context.Context, r domain.Region, begin, end time.Time, message string) (*Report, error) {
	if err := domain.ValidateRange(c.enumerator.Anchor(begin), c.enumerator.Anchor(end)); err != nil {
		return nil, err
	}

	var accounts []domain.Account
	err := c.opts.Retry.Do(ctx, "load_all_accounts", func(ctx context.Context) (err error) {
		accounts, err = c.clients.AccountDirectory().LoadAllAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	report := newReport(uuid.NewString(), ScopeRegion)
	claims := &sync.Map{}

	c.logger.Info("Cancelling region",
		slog.String("run_id", report.RunID),
		slog.String("region", r.String()),
		slog.Int("accounts", len(accounts)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.opts.AccountWorkers) // Limit concurrent accounts

loop:
	for _, account := range accounts {
		select {
		case <-ctx.Done():
			break loop
		case semaphore <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(account domain.Account) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			if err := c.cancelAccount(ctx, report, claims, account, r, begin, end, message); err != nil {
				c.logger.Error("Account sweep failed",
					slog.String("run_id", report.RunID),
					slog.String("account", account.Name),
					slog.Any("error", err))
				report.recordAccountFailure(account, err)
			}
		}(account)
	}

	wg.Wait()
	report.finish()
	return report, ctx.Err()
}

// cancelAccount enumerates the account in one query, then fans the in-region
// orders out to the guard. The call timeout bounds each stream read through
// the enumerator, not the whole drain.
func (c *Canceller) cancelAccount(ctx context.Context, report *Report, claims *sync.Map, account domain.Account, r domain.Region, begin, end time.Time, message string) error {
	drain := c.opts.Retry
	drain.CallTimeout = 0

	var orders []domain.Order
	err := drain.Do(ctx, "query_order_submissions", func(ctx context.Context) error {
		seq, err := c.enumerator.Enumerate(ctx, account, begin, end)
		if err != nil {
			return err
		}
		orders, err = execution.Collect(seq)
		return err
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.opts.OrderWorkers) // Limit concurrent orders

	for _, order := range orders {
		if !r.Contains(order.Fields.Security) {
			continue
		}
		if _, taken := claims.LoadOrStore(order.ID, struct{}{}); taken {
			continue
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case semaphore <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(order domain.Order) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release
			c.attempt(ctx, report, order, message)
		}(order)
	}

	wg.Wait()
	return nil
}

func (c *Canceller) attempt(ctx context.Context, report *Report, order domain.Order, message string) {
	c.opts.Metrics.RecordAttempt()
	res, err := c.guard.Cancel(ctx, order, message)

	switch res.Outcome {
	case domain.OutcomeCanceled:
		c.opts.Metrics.RecordCanceled()
	case domain.OutcomeAlreadyTerminal:
		c.opts.Metrics.RecordAlreadyTerminal()
	default:
		c.opts.Metrics.RecordFailure()
		c.logger.Error("Cancellation failed",
			slog.String("run_id", report.RunID),
			slog.Uint64("order_id", uint64(order.ID)),
			slog.String("account", order.Fields.Account.Name),
			slog.Int("writes", res.Writes),
			slog.Any("error", err))
	}
	report.recordOrder(order, res.Outcome, res.Writes, err)

	if c.opts.Journal == nil {
		return
	}
	rec := domain.CancellationRecord{
		RunID:       report.RunID,
		Scope:       report.Scope.String(),
		Account:     order.Fields.Account.Name,
		OrderID:     order.ID,
		Security:    order.Fields.Security.String(),
		Outcome:     res.Outcome,
		Writes:      res.Writes,
		Message:     message,
		AttemptedAt: time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	// The journal is an audit trail; losing an entry must not fail the sweep.
	if jerr := c.opts.Journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		c.logger.Warn("Journal write failed", slog.Any("error", jerr))
	}
}

func (c *Canceller) finishRun(ctx context.Context, report *Report, target string) {
	if c.opts.Journal == nil {
		return
	}
	if err := c.opts.Journal.FinishRun(context.WithoutCancel(ctx), report.runRecord(target)); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("Journal run summary failed", slog.Any("error", err))
	}
}
