package simulation

import (
	"time"

	"cancel_sweep/internal/domain"

	"github.com/shopspring/decimal"
)

// Reference data used by the default venue.
var (
	Canada       = domain.Country{Code: 124, Name: "Canada", TwoLetterCode: "CA", ThreeLetterCode: "CAN"}
	UnitedStates = domain.Country{Code: 840, Name: "United States", TwoLetterCode: "US", ThreeLetterCode: "USA"}

	TSX    = domain.Market{Code: "XTSE", Country: 124, TimeZone: "Eastern Standard Time", Currency: "CAD", BoardLot: 100, Description: "Toronto Stock Exchange", DisplayName: "TSX"}
	NYSE   = domain.Market{Code: "XNYS", Country: 840, TimeZone: "Eastern Standard Time", Currency: "USD", BoardLot: 100, Description: "New York Stock Exchange", DisplayName: "NYSE"}
	NASDAQ = domain.Market{Code: "XNAS", Country: 840, TimeZone: "Eastern Standard Time", Currency: "USD", BoardLot: 100, Description: "Nasdaq", DisplayName: "NASDAQ"}
)

// ReferenceZone is the reference time zone id of the default venue.
const ReferenceZone = "Eastern Standard Time"

// DefaultDefinitions returns the country, market and time zone databases
// installed by NewDefaultVenue.
func DefaultDefinitions() (*domain.CountryDatabase, *domain.MarketDatabase, *domain.TimeZoneDatabase) {
	return &domain.CountryDatabase{Entries: []domain.Country{Canada, UnitedStates}},
		&domain.MarketDatabase{Entries: []domain.Market{TSX, NYSE, NASDAQ}},
		&domain.TimeZoneDatabase{Zones: map[string]string{
			"Eastern Standard Time": "America/New_York",
			"UTC":                   "UTC",
		}}
}

// NewDefaultVenue returns a venue with the default reference data.
func NewDefaultVenue(start time.Time) *Venue {
	v := NewVenue(start)
	v.SetDefinitions(DefaultDefinitions())
	return v
}

// NewOrder builds a limit order for tests and demos. Pass reports to seed its
// history.
func NewOrder(id domain.OrderID, account domain.Account, security domain.Security, submitted time.Time, reports ...domain.ExecutionReport) domain.Order {
	return domain.Order{
		ID: id,
		Fields: domain.OrderFields{
			Account:     account,
			Security:    security,
			Currency:    "USD",
			Type:        domain.OrderTypeLimit,
			Side:        domain.SideBuy,
			Destination: string(security.Market),
			Quantity:    decimal.NewFromInt(100),
			Price:       decimal.RequireFromString("10.00"),
			TimeInForce: domain.TimeInForceDay,
		},
		Submitted: submitted,
		Reports:   reports,
	}
}

// Security returns the security symbol listed on market.
func Security(symbol string, market domain.Market) domain.Security {
	return domain.Security{Symbol: symbol, Market: market.Code, Country: market.Country}
}
