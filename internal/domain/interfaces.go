package domain

import (
	"context"
	"time"
)

// AccountDirectory resolves trading accounts.
type AccountDirectory interface {
	LoadAllAccounts(ctx context.Context) ([]Account, error)
	// FindAccount returns ErrAccountNotFound when no account has the name.
	FindAccount(ctx context.Context, name string) (Account, error)
}

// OrderStream yields order submissions one at a time. Next returns io.EOF once
// the end-of-stream signal has been received.
type OrderStream interface {
	Next(ctx context.Context) (Order, error)
	Close() error
}

// ExecutionClient talks to the remote order execution service.
type ExecutionClient interface {
	// LoadOrder returns ErrOrderNotFound when the id is unknown.
	LoadOrder(ctx context.Context, id OrderID) (Order, error)
	Update(ctx context.Context, id OrderID, report ExecutionReport) error
	// QueryOrderSubmissions streams the account's submissions for every day
	// touched by [begin, end].
	QueryOrderSubmissions(ctx context.Context, account Account, begin, end time.Time) (OrderStream, error)
}

// DefinitionsClient serves read-only reference data.
type DefinitionsClient interface {
	LoadMarketDatabase(ctx context.Context) (*MarketDatabase, error)
	LoadCountryDatabase(ctx context.Context) (*CountryDatabase, error)
	LoadTimeZoneDatabase(ctx context.Context) (*TimeZoneDatabase, error)
}

// TimeClient returns the venue's current time.
type TimeClient interface {
	Time(ctx context.Context) (time.Time, error)
}

// ServiceClients bundles the remote clients used by one invocation. Close
// releases every connection the bundle opened.
type ServiceClients interface {
	AccountDirectory() AccountDirectory
	ExecutionClient() ExecutionClient
	DefinitionsClient() DefinitionsClient
	TimeClient() TimeClient
	Close() error
}
