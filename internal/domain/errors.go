package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure talking to a remote service.
type NetworkError struct {
	Op        string // Operation that failed (e.g., "load_order", "update")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// RemoteError is a response from a remote service that reported failure.
// Server-side faults (5xx) are retriable; rejections are not.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return e.Op + ": remote status " + strconv.Itoa(e.Status) + ": " + e.Body
}

func (e *RemoteError) IsRetriable() bool {
	return e.Status >= 500
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InvalidRegionError is returned when a region token matches no country,
// market or security.
type InvalidRegionError struct {
	Token string
}

func (e *InvalidRegionError) Error() string {
	return fmt.Sprintf("invalid region %q", e.Token)
}

func (e *InvalidRegionError) Unwrap() error {
	return ErrInvalidRegion
}

// DateRangeError is returned when a range ends before it begins.
type DateRangeError struct {
	Begin time.Time
	End   time.Time
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s is before begin %s",
		e.End.Format(time.DateTime), e.Begin.Format(time.DateTime))
}

func (e *DateRangeError) Unwrap() error {
	return ErrDateRange
}

// ValidateRange returns a DateRangeError when end is before begin.
func ValidateRange(begin, end time.Time) error {
	if end.Before(begin) {
		return &DateRangeError{Begin: begin, End: end}
	}
	return nil
}

var (
	// ErrOrderNotFound is returned when the execution service has no such order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAccountNotFound is returned when the directory has no such account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidRegion is wrapped by InvalidRegionError.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrDateRange is wrapped by DateRangeError.
	ErrDateRange = errors.New("invalid date range")

	// ErrNoScope is returned when a request names no order, account or region.
	ErrNoScope = errors.New("no scope supplied")

	// ErrConflictingScope is returned when an order id is combined with an
	// account or region.
	ErrConflictingScope = errors.New("order id cannot be combined with account or region")

	// ErrInvalidTransition is returned when a report would violate the order
	// state machine. Never retriable.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
