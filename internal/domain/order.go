package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderID identifies an order at the execution service.
type OrderID uint64

// Side of an order.
type Side string

// OrderType of an order.
type OrderType string

// TimeInForce of an order.
type TimeInForce string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"

	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypePegged OrderType = "PEGGED"

	TimeInForceDay TimeInForce = "DAY"
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceMOC TimeInForce = "MOC"
)

// OrderFields are the submission fields of an order. They never change after
// submission.
type OrderFields struct {
	Account     Account         `json:"account"`
	Security    Security        `json:"security"`
	Currency    string          `json:"currency"`
	Type        OrderType       `json:"type"`
	Side        Side            `json:"side"`
	Destination string          `json:"destination"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TimeInForce TimeInForce     `json:"time_in_force"`
}

// Order is a read-only snapshot of an order held by the execution service.
// Reports is the execution report history at the time the snapshot was taken.
type Order struct {
	ID        OrderID           `json:"order_id"`
	Fields    OrderFields       `json:"fields"`
	Submitted time.Time         `json:"timestamp"`
	Reports   []ExecutionReport `json:"execution_reports"`
}

// LatestReport returns the last report in the order's history.
func (o *Order) LatestReport() (ExecutionReport, bool) {
	if len(o.Reports) == 0 {
		return ExecutionReport{}, false
	}
	return o.Reports[len(o.Reports)-1], true
}

// IsTerminal reports whether the order's latest status is terminal.
func (o *Order) IsTerminal() bool {
	last, ok := o.LatestReport()
	return ok && last.Status.IsTerminal()
}
