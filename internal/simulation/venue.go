// Package simulation provides an in-memory venue that implements every remote
// service the cancellation engine talks to. It enforces the order state
// machine so tests observe the same rejections a real venue would produce.
package simulation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cancel_sweep/internal/domain"
)

// Write is one report accepted by Update.
type Write struct {
	OrderID domain.OrderID
	Report  domain.ExecutionReport
}

// Venue simulates the account directory, execution, definitions and time
// services. Safe for concurrent use.
type Venue struct {
	mu       sync.Mutex
	accounts []domain.Account
	orders   map[domain.OrderID]*domain.Order
	writes   []Write
	queries  []string // account names, in query order

	// injected failures: remaining count per order id
	updateFailures map[domain.OrderID]int
	updateErr      error
	queryErr       map[string]error

	countries *domain.CountryDatabase
	markets   *domain.MarketDatabase
	zones     *domain.TimeZoneDatabase

	now    time.Time
	tick   time.Duration
	closed bool
}

// NewVenue creates an empty venue whose clock starts at start and advances by
// one second per read.
func NewVenue(start time.Time) *Venue {
	return &Venue{
		orders:         make(map[domain.OrderID]*domain.Order),
		updateFailures: make(map[domain.OrderID]int),
		queryErr:       make(map[string]error),
		countries:      &domain.CountryDatabase{},
		markets:        &domain.MarketDatabase{},
		zones:          &domain.TimeZoneDatabase{Zones: map[string]string{}},
		now:            start,
		tick:           time.Second,
	}
}

// SetDefinitions replaces the reference data served by the venue.
func (v *Venue) SetDefinitions(countries *domain.CountryDatabase, markets *domain.MarketDatabase, zones *domain.TimeZoneDatabase) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.countries, v.markets, v.zones = countries, markets, zones
}

// AddAccount registers an account.
func (v *Venue) AddAccount(account domain.Account) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts = append(v.accounts, account)
}

// AddOrder registers an order snapshot. Its reports become the venue's history.
func (v *Venue) AddOrder(order domain.Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o := cloneOrder(order)
	v.orders[order.ID] = &o
}

// FailUpdates makes the next n updates of id fail with err.
func (v *Venue) FailUpdates(id domain.OrderID, n int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updateFailures[id] = n
	v.updateErr = err
}

// FailQuery makes submission queries for the account fail with err.
func (v *Venue) FailQuery(account string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.queryErr[account] = err
}

// Writes returns every accepted report in acceptance order.
func (v *Venue) Writes() []Write {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Write(nil), v.writes...)
}

// WritesFor returns the accepted reports of one order.
func (v *Venue) WritesFor(id domain.OrderID) []domain.ExecutionReport {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.ExecutionReport
	for _, w := range v.writes {
		if w.OrderID == id {
			out = append(out, w.Report)
		}
	}
	return out
}

// Queries returns the account names queried so far.
func (v *Venue) Queries() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.queries...)
}

// Order returns the venue's current view of an order.
func (v *Venue) Order(id domain.OrderID) (domain.Order, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o, ok := v.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return cloneOrder(*o), true
}

// Closed reports whether Close was called.
func (v *Venue) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// ======================================================================================
// domain.ServiceClients
// ======================================================================================

func (v *Venue) AccountDirectory() domain.AccountDirectory   { return v }
func (v *Venue) ExecutionClient() domain.ExecutionClient     { return v }
func (v *Venue) DefinitionsClient() domain.DefinitionsClient { return v }
func (v *Venue) TimeClient() domain.TimeClient               { return v }

// Close marks the venue closed.
func (v *Venue) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// ======================================================================================
// domain.AccountDirectory
// ======================================================================================

func (v *Venue) LoadAllAccounts(ctx context.Context) ([]domain.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Account(nil), v.accounts...), nil
}

func (v *Venue) FindAccount(ctx context.Context, name string) (domain.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, a := range v.accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return domain.Account{}, fmt.Errorf("%s: %w", name, domain.ErrAccountNotFound)
}

// ======================================================================================
// domain.ExecutionClient
// ======================================================================================

func (v *Venue) LoadOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	if o, ok := v.Order(id); ok {
		return o, nil
	}
	return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
}

// Update appends report to the order's history if the state machine allows it.
func (v *Venue) Update(ctx context.Context, id domain.OrderID, report domain.ExecutionReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if n := v.updateFailures[id]; n > 0 {
		v.updateFailures[id] = n - 1
		return v.updateErr
	}

	o, ok := v.orders[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	if err := validateNext(o.Reports, report); err != nil {
		return fmt.Errorf("order %d: %w", id, err)
	}

	o.Reports = append(o.Reports, report)
	v.writes = append(v.writes, Write{OrderID: id, Report: report})
	slog.Debug("SIMULATION: report accepted",
		slog.Uint64("order_id", uint64(id)), slog.String("status", string(report.Status)))
	return nil
}

func validateNext(history []domain.ExecutionReport, next domain.ExecutionReport) error {
	if len(history) == 0 {
		if next.Status != domain.OrderStatusPendingNew || next.Sequence != 0 {
			return fmt.Errorf("first report must be PENDING_NEW: %w", domain.ErrInvalidTransition)
		}
		return nil
	}
	last := history[len(history)-1]
	if last.Status.IsTerminal() {
		return fmt.Errorf("order is %s: %w", last.Status, domain.ErrInvalidTransition)
	}
	if !last.Status.CanTransition(next.Status) {
		return fmt.Errorf("%s -> %s: %w", last.Status, next.Status, domain.ErrInvalidTransition)
	}
	if next.Sequence != last.Sequence+1 {
		return fmt.Errorf("sequence %d after %d: %w", next.Sequence, last.Sequence, domain.ErrInvalidTransition)
	}
	return nil
}

// QueryOrderSubmissions streams the account's orders submitted on any day
// touched by [begin, end], like the venue's daily submission index.
func (v *Venue) QueryOrderSubmissions(ctx context.Context, account domain.Account, begin, end time.Time) (domain.OrderStream, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.queries = append(v.queries, account.Name)
	if err := v.queryErr[account.Name]; err != nil {
		return nil, err
	}

	dayStart := time.Date(begin.Year(), begin.Month(), begin.Day(), 0, 0, 0, 0, begin.Location())
	dayEnd := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)

	var orders []domain.Order
	for _, o := range v.orders {
		if o.Fields.Account.Name != account.Name {
			continue
		}
		if o.Submitted.Before(dayStart) || !o.Submitted.Before(dayEnd) {
			continue
		}
		orders = append(orders, cloneOrder(*o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return &sliceStream{orders: orders}, nil
}

// ======================================================================================
// domain.DefinitionsClient / domain.TimeClient
// ======================================================================================

func (v *Venue) LoadMarketDatabase(ctx context.Context) (*domain.MarketDatabase, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.markets, nil
}

func (v *Venue) LoadCountryDatabase(ctx context.Context) (*domain.CountryDatabase, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.countries, nil
}

func (v *Venue) LoadTimeZoneDatabase(ctx context.Context) (*domain.TimeZoneDatabase, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zones, nil
}

func (v *Venue) Time(ctx context.Context) (time.Time, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(v.tick)
	return v.now, nil
}

type sliceStream struct {
	orders []domain.Order
	next   int
	closed bool
}

func (s *sliceStream) Next(ctx context.Context) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	if s.closed || s.next >= len(s.orders) {
		return domain.Order{}, io.EOF
	}
	o := s.orders[s.next]
	s.next++
	return o, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Reports = append([]domain.ExecutionReport(nil), o.Reports...)
	return o
}
