package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state carried by an execution report.
type OrderStatus string

const (
	OrderStatusPendingNew      OrderStatus = "PENDING_NEW"
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// transitions lists the statuses reachable from each non-terminal status.
// An unacknowledged order (PENDING_NEW) may be canceled directly.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingNew: {
		OrderStatusNew, OrderStatusRejected, OrderStatusCanceled,
	},
	OrderStatusNew: {
		OrderStatusPartiallyFilled, OrderStatusCanceled, OrderStatusExpired,
		OrderStatusRejected,
	},
	OrderStatusPartiallyFilled: {
		OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCanceled,
		OrderStatusExpired,
	},
}

// IsTerminal reports whether no further report may follow this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected:
		return true
	}
	return false
}

// IsKnown reports whether s is one of the defined statuses.
func (s OrderStatus) IsKnown() bool {
	if s.IsTerminal() {
		return true
	}
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a report with status next may follow s.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ExecutionReport is one entry of an order's lifecycle history.
type ExecutionReport struct {
	OrderID       OrderID         `json:"order_id"`
	Sequence      int             `json:"sequence"`
	Status        OrderStatus     `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
	Text          string          `json:"text,omitempty"`
	LastQuantity  decimal.Decimal `json:"last_quantity"`
	LastPrice     decimal.Decimal `json:"last_price"`
	LastMarket    string          `json:"last_market,omitempty"`
	LiquidityFlag string          `json:"liquidity_flag,omitempty"`
	ExecutionFee  decimal.Decimal `json:"execution_fee"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	Commission    decimal.Decimal `json:"commission"`
}

// BuildInitialReport returns the PENDING_NEW report that opens an order's
// history.
func BuildInitialReport(id OrderID, ts time.Time) ExecutionReport {
	return ExecutionReport{
		OrderID:   id,
		Sequence:  0,
		Status:    OrderStatusPendingNew,
		Timestamp: ts,
	}
}

// BuildUpdatedReport returns the report that follows prev with the given
// status. Fill fields are not carried over.
func BuildUpdatedReport(prev ExecutionReport, status OrderStatus, ts time.Time) ExecutionReport {
	return ExecutionReport{
		OrderID:   prev.OrderID,
		Sequence:  prev.Sequence + 1,
		Status:    status,
		Timestamp: ts,
	}
}
