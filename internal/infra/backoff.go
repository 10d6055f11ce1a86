package infra

import (
	"context"
	"log/slog"
	"time"

	"cancel_sweep/internal/domain"
)

const (
	// Standard backoff constants
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a given retry count.
// Logic: baseDelay * 2^retryCount, capped at maxDelay.
// If retryCount is negative, it returns baseDelay.
func CalculateBackoff(retryCount int) time.Duration {
	return backoff(baseDelay, maxDelay, retryCount)
}

func backoff(base, max time.Duration, retryCount int) time.Duration {
	if retryCount < 0 {
		return base
	}

	// 2^30 is already > 1 billion seconds > maxDelay.
	if retryCount > 30 {
		return max
	}

	d := base * time.Duration(1<<retryCount)
	if d > max || d <= 0 {
		return max
	}
	return d
}

// RetryPolicy bounds attempts against a remote service.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	CallTimeout time.Duration // per attempt; zero means no bound
	Metrics     *Metrics      // nil records to GlobalMetrics
}

// DefaultRetryPolicy returns sensible defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		CallTimeout: 10 * time.Second,
	}
}

// Do runs fn until it succeeds, fails with a non-retriable error, or the
// attempts run out. Each attempt gets its own CallTimeout. A timed-out attempt
// is reported as a retriable NetworkError.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			p.metrics().RecordRetry()
			delay := p.delay(attempt - 1)
			slog.Debug("Retrying remote call",
				slog.String("op", op), slog.Int("attempt", attempt+1), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = p.attempt(ctx, op, fn)
		if err == nil || !domain.IsRetriable(err) {
			return err
		}
	}
	return err
}

func (p RetryPolicy) metrics() *Metrics {
	if p.Metrics == nil {
		return GlobalMetrics
	}
	return p.Metrics
}

// delay falls back to the standard backoff when the policy sets no base delay.
func (p RetryPolicy) delay(retryCount int) time.Duration {
	if p.BaseDelay <= 0 {
		return CalculateBackoff(retryCount)
	}
	ceiling := p.MaxDelay
	if ceiling < p.BaseDelay {
		ceiling = p.BaseDelay
	}
	return backoff(p.BaseDelay, ceiling, retryCount)
}

func (p RetryPolicy) attempt(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if p.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && callCtx.Err() == context.DeadlineExceeded {
		return domain.NewNetworkError(op, callCtx.Err())
	}
	return err
}
