package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"cancel_sweep/internal/domain"
)

// Enumerator lists an account's order submissions over a date range.
// Dates are wall-clock times in the reference time zone.
type Enumerator struct {
	client      domain.ExecutionClient
	zone        *time.Location
	stepTimeout time.Duration
	logger      *slog.Logger
}

// NewEnumerator resolves zoneID through zones and returns an Enumerator
// anchored to it.
func NewEnumerator(client domain.ExecutionClient, zones *domain.TimeZoneDatabase, zoneID string) (*Enumerator, error) {
	loc, err := zones.Location(zoneID)
	if err != nil {
		return nil, fmt.Errorf("reference time zone: %w", err)
	}
	return &Enumerator{
		client: client,
		zone:   loc,
		logger: slog.Default().With("module", "enumerator"),
	}, nil
}

// SetStepTimeout bounds opening the query and each read from its stream.
// Zero means no bound. A step that runs out of time fails with a retriable
// NetworkError; the drain as a whole is bounded only by the caller's context.
func (e *Enumerator) SetStepTimeout(d time.Duration) {
	e.stepTimeout = d
}

func (e *Enumerator) step(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if e.stepTimeout <= 0 {
		return fn(ctx)
	}
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	err := fn(stepCtx)
	if err != nil && ctx.Err() == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return domain.NewNetworkError(op, stepCtx.Err())
	}
	return err
}

// Zone returns the reference time zone.
func (e *Enumerator) Zone() *time.Location {
	return e.zone
}

// Anchor reinterprets t's wall clock in the reference time zone.
func (e *Enumerator) Anchor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), e.zone)
}

// Enumerate returns the account's orders submitted within [begin, end], both
// inclusive. The range is checked before anything is queried.
//
// The sequence is lazy: each range over it runs one fresh query and stops the
// query when the caller breaks out. Each order carries its execution reports as
// of the query.
func (e *Enumerator) Enumerate(ctx context.Context, account domain.Account, begin, end time.Time) (iter.Seq2[domain.Order, error], error) {
	begin, end = e.Anchor(begin), e.Anchor(end)
	if err := domain.ValidateRange(begin, end); err != nil {
		return nil, err
	}

	return func(yield func(domain.Order, error) bool) {
		var stream domain.OrderStream
		err := e.step(ctx, "query_order_submissions", func(ctx context.Context) (err error) {
			stream, err = e.client.QueryOrderSubmissions(ctx, account, begin, end)
			return err
		})
		if err != nil {
			yield(domain.Order{}, fmt.Errorf("query submissions for %s: %w", account.Name, err))
			return
		}
		defer stream.Close()

		for {
			var order domain.Order
			err := e.step(ctx, "read_submissions", func(ctx context.Context) (err error) {
				order, err = stream.Next(ctx)
				return err
			})
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(domain.Order{}, fmt.Errorf("read submissions for %s: %w", account.Name, err))
				return
			}
			// The query is day-granular; trim to the exact range.
			if order.Submitted.Before(begin) || order.Submitted.After(end) {
				continue
			}
			if !yield(order, nil) {
				return
			}
		}
	}, nil
}

// Collect drains a sequence, stopping at the first error.
func Collect(seq iter.Seq2[domain.Order, error]) ([]domain.Order, error) {
	var orders []domain.Order
	for order, err := range seq {
		if err != nil {
			return orders, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
