package service

import (
	"strconv"
	"strings"
	"time"

	"cancel_sweep/internal/domain"
)

// DefaultMessage is the cancel report text when none is given.
const DefaultMessage = "Session terminated."

// Scope is the breadth of a cancellation request.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOrder
	ScopeAccount
	ScopeRegion
)

func (s Scope) String() string {
	switch s {
	case ScopeOrder:
		return "ORDER"
	case ScopeAccount:
		return "ACCOUNT"
	case ScopeRegion:
		return "REGION"
	default:
		return "NONE"
	}
}

// Request is one operator invocation. Exactly one of OrderID, Account or
// Region selects the scope; Region may also narrow an Account request.
type Request struct {
	OrderID *domain.OrderID
	Account string
	Region  string // token, resolved per request; "" means global for accounts
	Begin   time.Time
	End     time.Time
	Message string
}

// Scope returns the request's scope, or an error when it has none or mixes
// an order id with a batch scope.
func (r Request) Scope() (Scope, error) {
	account := strings.TrimSpace(r.Account)
	region := strings.TrimSpace(r.Region)

	switch {
	case r.OrderID != nil && (account != "" || region != ""):
		return ScopeNone, domain.ErrConflictingScope
	case r.OrderID != nil:
		return ScopeOrder, nil
	case account != "":
		return ScopeAccount, nil
	case region != "":
		return ScopeRegion, nil
	}
	return ScopeNone, domain.ErrNoScope
}

func (r Request) message() string {
	if r.Message == "" {
		return DefaultMessage
	}
	return r.Message
}

func (r Request) target() string {
	switch {
	case r.OrderID != nil:
		return strconv.FormatUint(uint64(*r.OrderID), 10)
	case r.Account != "" && r.Region != "":
		return r.Account + "@" + r.Region
	case r.Account != "":
		return r.Account
	}
	return r.Region
}
