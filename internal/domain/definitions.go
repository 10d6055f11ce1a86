package domain

import (
	"fmt"
	"strings"
	"time"
)

// CountryCode is the ISO 3166 numeric code of a country.
type CountryCode uint16

// NoCountry marks an unknown country.
const NoCountry CountryCode = 0

// MarketCode is a market identifier code (MIC), e.g. "XTSE".
type MarketCode string

// Country is one entry of the country database.
type Country struct {
	Code            CountryCode `json:"code"`
	Name            string      `json:"name"`
	TwoLetterCode   string      `json:"two_letter_code"`
	ThreeLetterCode string      `json:"three_letter_code"`
}

// CountryDatabase is the read-only list of known countries.
type CountryDatabase struct {
	Entries []Country `json:"entries"`
}

// FromCode returns the country with the given numeric code.
func (d *CountryDatabase) FromCode(code CountryCode) (Country, bool) {
	return d.find(func(c Country) bool { return c.Code == code })
}

// FromTwoLetterCode returns the country with the given ISO alpha-2 code.
func (d *CountryDatabase) FromTwoLetterCode(code string) (Country, bool) {
	return d.find(func(c Country) bool { return c.TwoLetterCode == code })
}

// FromThreeLetterCode returns the country with the given ISO alpha-3 code.
func (d *CountryDatabase) FromThreeLetterCode(code string) (Country, bool) {
	return d.find(func(c Country) bool { return c.ThreeLetterCode == code })
}

// FromName returns the country with the given name.
func (d *CountryDatabase) FromName(name string) (Country, bool) {
	return d.find(func(c Country) bool { return c.Name == name })
}

func (d *CountryDatabase) find(match func(Country) bool) (Country, bool) {
	if d == nil {
		return Country{}, false
	}
	for _, c := range d.Entries {
		if match(c) {
			return c, true
		}
	}
	return Country{}, false
}

// Market is one entry of the market database.
type Market struct {
	Code        MarketCode  `json:"code"`
	Country     CountryCode `json:"country_code"`
	TimeZone    string      `json:"time_zone"`
	Currency    string      `json:"currency"`
	BoardLot    int         `json:"board_lot"`
	Description string      `json:"description"`
	DisplayName string      `json:"display_name"`
}

// MarketDatabase is the read-only list of known markets.
type MarketDatabase struct {
	Entries []Market `json:"entries"`
}

// FromCode returns the market with the given MIC.
func (d *MarketDatabase) FromCode(code MarketCode) (Market, bool) {
	return d.find(func(m Market) bool { return m.Code == code })
}

// FromDisplayName returns the market with the given display name, e.g. "TSX".
func (d *MarketDatabase) FromDisplayName(name string) (Market, bool) {
	return d.find(func(m Market) bool { return m.DisplayName == name })
}

// Parse looks a market up by display name first, then by MIC.
func (d *MarketDatabase) Parse(source string) (Market, bool) {
	if m, ok := d.FromDisplayName(source); ok {
		return m, true
	}
	return d.FromCode(MarketCode(source))
}

func (d *MarketDatabase) find(match func(Market) bool) (Market, bool) {
	if d == nil {
		return Market{}, false
	}
	for _, m := range d.Entries {
		if match(m) {
			return m, true
		}
	}
	return Market{}, false
}

// Security is a listed instrument. Market and Country locate it in the
// region hierarchy.
type Security struct {
	Symbol  string      `json:"symbol"`
	Market  MarketCode  `json:"market"`
	Country CountryCode `json:"country"`
}

func (s Security) String() string {
	return s.Symbol + "." + string(s.Market)
}

// ParseSecurity parses the SYMBOL.MARKET form, where MARKET is a display name
// or MIC known to markets. The last dot separates the market.
func ParseSecurity(source string, markets *MarketDatabase) (Security, bool) {
	sep := strings.LastIndex(source, ".")
	if sep <= 0 || sep == len(source)-1 {
		return Security{}, false
	}
	market, ok := markets.Parse(source[sep+1:])
	if !ok {
		return Security{}, false
	}
	return Security{
		Symbol:  source[:sep],
		Market:  market.Code,
		Country: market.Country,
	}, true
}

// TimeZoneDatabase maps venue time zone ids to IANA location names.
type TimeZoneDatabase struct {
	Zones map[string]string `json:"zones"`
}

// Location resolves a time zone id. Ids that are not listed are tried as IANA
// names directly.
func (d *TimeZoneDatabase) Location(id string) (*time.Location, error) {
	name := id
	if d != nil {
		if mapped, ok := d.Zones[id]; ok {
			name = mapped
		}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", id, err)
	}
	return loc, nil
}

// Definitions is the reference data loaded once per invocation.
type Definitions struct {
	Countries *CountryDatabase
	Markets   *MarketDatabase
	TimeZones *TimeZoneDatabase
}
